package trial

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/banshee-data/gaze.report/internal/rewardgraph"
)

// Record is the analysed form of one trial. Pointer fields are nil when the
// value is undefined for the trial.
type Record struct {
	Graph   rewardgraph.Graph   `json:"graph"`
	Rewards rewardgraph.Rewards `json:"rewards"`
	Start   int                 `json:"start"`
	Events  []Event             `json:"events"`

	WID        string `json:"wid"`
	TrialIndex int    `json:"trial_index"`

	Choice          []int   `json:"choice"`
	Layer1          [2]*int `json:"layer1"`
	Layer2          [2]*int `json:"layer2"`
	ConnectNodes    []int   `json:"connect_nodes"`
	NonConnectNodes []int   `json:"non_connect_nodes"`

	Difficulty  *float64 `json:"difficulty"`
	Difficulty1 *float64 `json:"difficulty_1"`
	Difficulty2 *float64 `json:"difficulty_2"`
	Type        string   `json:"type"`
	DF          *int     `json:"df"`

	Accuracy      int      `json:"accuracy"`
	Accuracy1     int      `json:"accuracy_1"`
	RTFirstVisit  *float64 `json:"RT_first_visit"`
	RTSecondVisit *float64 `json:"RT_second_visit"`
	RT            *float64 `json:"RT"`
	MaxReward     float64  `json:"max_reward"`
	Loss          float64  `json:"loss"`

	// Extra holds trial keys outside the analysis, written alongside the
	// fields above. Analysis fields take precedence on a name clash.
	Extra map[string]json.RawMessage `json:"-"`
}

type plainRecord Record

var recordKeys = func() map[string]bool {
	keys := make(map[string]bool)
	rt := reflect.TypeOf(plainRecord{})
	for i := range rt.NumField() {
		name, _, _ := strings.Cut(rt.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys[name] = true
		}
	}
	return keys
}()

func (r Record) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(plainRecord(r))
	if err != nil || len(r.Extra) == 0 {
		return b, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if !recordKeys[k] {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var p plainRecord
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if recordKeys[k] {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[k] = v
	}
	*r = Record(p)
	return nil
}
