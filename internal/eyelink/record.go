package eyelink

// Kind names the variant of a Record. The values double as the "type" column
// of the tabular output.
type Kind string

const (
	KindMessage  Kind = "Message"
	KindFixation Kind = "Fixation"
	KindGaze     Kind = "Gaze"
	KindBlink    Kind = "Blink"
	KindSaccade  Kind = "Saccade"
)

// Context is the parser state a record was emitted under.
type Context struct {
	TrialIndex int    `json:"trial_index"`
	Visit      int    `json:"visit"`
	Switch     int    `json:"switch"`
	Event      string `json:"event,omitempty"` // most recent message event, "" before the first
}

// Record is one typed entry of a parsed session. The set of implementations
// is closed: Message, Fixation, Gaze, Blink and Saccade.
type Record interface {
	Kind() Kind
	Ctx() Context
	record() // marker method restricting implementations to this package
}

// Message is an experiment message carrying both clocks.
type Message struct {
	Context
	TrackerTime    float64 `json:"time"`       // seconds, tracker clock
	ExperimentTime float64 `json:"time_event"` // seconds, experiment clock
	// Drift is the message's clock offset minus the reconciled offset in
	// force when it was read.
	Drift float64 `json:"offset"`
}

// Fixation is an EFIX end-of-fixation event.
type Fixation struct {
	Context
	Eye      string  `json:"eye"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	Node     int     `json:"node"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pupil    float64 `json:"pupil"`
	Aligned  bool    `json:"aligned"`
}

// Gaze is a single raw gaze sample.
type Gaze struct {
	Context
	Time    float64 `json:"time"`
	Node    int     `json:"node"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Aligned bool    `json:"aligned"`
}

// Blink is an EBLINK end-of-blink event. Eye is empty when the line carries
// no eye designator.
type Blink struct {
	Context
	Eye      string  `json:"eye,omitempty"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	Aligned  bool    `json:"aligned"`
}

// Saccade is an ESACC end-of-saccade event.
type Saccade struct {
	Context
	Eye          string  `json:"eye"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Duration     float64 `json:"duration"`
	StartX       float64 `json:"start_x"`
	StartY       float64 `json:"start_y"`
	EndX         float64 `json:"end_x"`
	EndY         float64 `json:"end_y"`
	Amplitude    float64 `json:"amplitude"`
	PeakVelocity float64 `json:"peak_velocity"`
	StartNode    int     `json:"start_node"`
	EndNode      int     `json:"end_node"`
	Aligned      bool    `json:"aligned"`
}

func (m Message) Kind() Kind  { return KindMessage }
func (f Fixation) Kind() Kind { return KindFixation }
func (g Gaze) Kind() Kind     { return KindGaze }
func (b Blink) Kind() Kind    { return KindBlink }
func (s Saccade) Kind() Kind  { return KindSaccade }

func (m Message) Ctx() Context  { return m.Context }
func (f Fixation) Ctx() Context { return f.Context }
func (g Gaze) Ctx() Context     { return g.Context }
func (b Blink) Ctx() Context    { return b.Context }
func (s Saccade) Ctx() Context  { return s.Context }

func (Message) record()  {}
func (Fixation) record() {}
func (Gaze) record()     {}
func (Blink) record()    {}
func (Saccade) record()  {}
