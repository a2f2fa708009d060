package eyelink

// Event names that drive the parser state.
const (
	EventInitialize = "initialize"
	EventVisit      = "visit"
	EventSwitch     = "switch"
	EventSelect     = "select"
	driftCheck      = "drift check"
)

// State is the running state of a single parse. It is passed into and
// returned from every Step, so independent streams never share it.
type State struct {
	TrialIndex int
	Visit      int
	Switch     int
	// Offset is experiment time minus tracker time (seconds) at the last
	// reconciliation point. It is meaningful only once Synced is true.
	Offset float64
	Synced bool
	Event  string
}

func (s State) context() Context {
	return Context{
		TrialIndex: s.TrialIndex,
		Visit:      s.Visit,
		Switch:     s.Switch,
		Event:      s.Event,
	}
}

// align converts a tracker timestamp in milliseconds to reconciled seconds.
// Before the first message there is no offset and the tracker clock is
// returned unchanged with aligned=false.
func (s State) align(ms float64) (sec float64, aligned bool) {
	sec = ms / 1000
	if !s.Synced {
		return sec, false
	}
	return sec + s.Offset, true
}

// applyMessage folds one message into the state.
func (s State) applyMessage(event string, offset float64, resync bool) State {
	s.Event = event
	if !s.Synced || resync {
		s.Offset = offset
		s.Synced = true
	}
	switch event {
	case EventInitialize:
		s.TrialIndex++
		s.Visit = 0
		s.Switch = 0
	case EventVisit:
		s.Visit++
	case EventSwitch:
		// Set, not accumulated: any number of switches within a trial reads as 1.
		s.Switch = 1
	}
	return s
}
