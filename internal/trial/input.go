// Package trial assembles one analysed record per trial of a navigation
// session from the trial's reward graph and its behavioural event log.
package trial

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/banshee-data/gaze.report/internal/rewardgraph"
)

// Event names that carry meaning for the analysis.
const (
	EventVisit  = "visit"
	EventSelect = "select"
)

// Event is one behavioural event. Fields the analysis does not use are kept
// and written back unchanged.
type Event struct {
	Name     string
	Time     float64
	State    *int // node entered, for events that move the participant
	Selected *int // node chosen, for select events

	raw map[string]json.RawMessage
}

func decodeField(raw map[string]json.RawMessage, key string, dst any) error {
	v, ok := raw[key]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("event: %w", err)
	}
	ev := Event{raw: raw}
	if err := decodeField(raw, "event", &ev.Name); err != nil {
		return fmt.Errorf("event: %w", err)
	}
	if err := decodeField(raw, "time", &ev.Time); err != nil {
		return fmt.Errorf("event %q: %w", ev.Name, err)
	}
	if err := decodeField(raw, "state", &ev.State); err != nil {
		return fmt.Errorf("event %q: %w", ev.Name, err)
	}
	if err := decodeField(raw, "selected", &ev.Selected); err != nil {
		return fmt.Errorf("event %q: %w", ev.Name, err)
	}
	*e = ev
	return nil
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.raw)+4)
	for k, v := range e.raw {
		out[k] = v
	}
	// An unnamed event keeps whatever the input had, including no key.
	if e.Name != "" {
		out["event"] = e.Name
	}
	if _, ok := e.raw["time"]; ok || e.Time != 0 {
		out["time"] = e.Time
	}
	if e.State != nil {
		out["state"] = *e.State
	}
	if e.Selected != nil {
		out["selected"] = *e.Selected
	}
	return json.Marshal(out)
}

// Trial is the task definition of one trial. Keys other than graph, rewards
// and start are kept in Extra and carried through to the output record.
type Trial struct {
	Graph   rewardgraph.Graph
	Rewards rewardgraph.Rewards
	Start   int
	Extra   map[string]json.RawMessage
}

func (t *Trial) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("trial: %w", err)
	}
	var tr Trial
	for key, dst := range map[string]any{"graph": &tr.Graph, "rewards": &tr.Rewards, "start": &tr.Start} {
		if _, ok := raw[key]; !ok {
			return fmt.Errorf("trial: missing %s", key)
		}
		if err := decodeField(raw, key, dst); err != nil {
			return fmt.Errorf("trial: %w", err)
		}
		delete(raw, key)
	}
	if len(raw) > 0 {
		tr.Extra = raw
	}
	*t = tr
	return nil
}

func (t Trial) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Extra)+3)
	for k, v := range t.Extra {
		out[k] = v
	}
	out["graph"] = t.Graph
	out["rewards"] = t.Rewards
	out["start"] = t.Start
	return json.Marshal(out)
}

// Input is one entry of a session's trial_data list.
type Input struct {
	Trial  Trial   `json:"trial"`
	Events []Event `json:"events"`
}

// Session is a participant's experiment file.
type Session struct {
	WID          string          `json:"-"`
	PracticeData json.RawMessage `json:"practice_data"`
	Trials       []Input         `json:"-"`
}

// WIDFromPath derives the participant id from a session file name.
func WIDFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".json")
}

// ReadSession decodes a session file. A trial_data value that is not a list
// yields a session with no trials.
func ReadSession(r io.Reader, wid string) (*Session, error) {
	var doc struct {
		PracticeData json.RawMessage `json:"practice_data"`
		TrialData    json.RawMessage `json:"trial_data"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", wid, err)
	}
	s := &Session{WID: wid, PracticeData: doc.PracticeData}
	if td := bytes.TrimSpace(doc.TrialData); len(td) > 0 && td[0] == '[' {
		if err := json.Unmarshal(td, &s.Trials); err != nil {
			return nil, fmt.Errorf("decode session %s trial_data: %w", wid, err)
		}
	}
	return s, nil
}
