// Package merge joins analysed trials with the eye records of the same
// participant, producing one summary per trial and visit.
package merge

import (
	"github.com/banshee-data/gaze.report/internal/eyelink"
	"github.com/banshee-data/gaze.report/internal/rewardgraph"
	"github.com/banshee-data/gaze.report/internal/spatial"
	"github.com/banshee-data/gaze.report/internal/trial"
)

// TrialFields is the subset of a trial record repeated on every visit
// summary.
type TrialFields struct {
	Graph           rewardgraph.Graph   `json:"graph"`
	Rewards         rewardgraph.Rewards `json:"rewards"`
	Start           int                 `json:"start"`
	Choice          []int               `json:"choice"`
	Layer1          [2]*int             `json:"layer1"`
	Layer2          [2]*int             `json:"layer2"`
	TrialIndex      int                 `json:"trial_index"`
	Difficulty      *float64            `json:"difficulty"`
	Difficulty1     *float64            `json:"difficulty_1"`
	Difficulty2     *float64            `json:"difficulty_2"`
	ConnectNodes    []int               `json:"connect_nodes"`
	NonConnectNodes []int               `json:"non_connect_nodes"`
	Type            string              `json:"type"`
	WID             string              `json:"wid"`
	Accuracy        int                 `json:"accuracy"`
	Accuracy1       int                 `json:"accuracy_1"`
	DF              *int                `json:"df"`
	RTFirstVisit    *float64            `json:"RT_first_visit"`
	RTSecondVisit   *float64            `json:"RT_second_visit"`
	RT              *float64            `json:"RT"`
	MaxReward       float64             `json:"max_reward"`
	Loss            float64             `json:"loss"`
}

func fieldsOf(r trial.Record) TrialFields {
	return TrialFields{
		Graph:           r.Graph,
		Rewards:         r.Rewards,
		Start:           r.Start,
		Choice:          r.Choice,
		Layer1:          r.Layer1,
		Layer2:          r.Layer2,
		TrialIndex:      r.TrialIndex,
		Difficulty:      r.Difficulty,
		Difficulty1:     r.Difficulty1,
		Difficulty2:     r.Difficulty2,
		ConnectNodes:    r.ConnectNodes,
		NonConnectNodes: r.NonConnectNodes,
		Type:            r.Type,
		WID:             r.WID,
		Accuracy:        r.Accuracy,
		Accuracy1:       r.Accuracy1,
		DF:              r.DF,
		RTFirstVisit:    r.RTFirstVisit,
		RTSecondVisit:   r.RTSecondVisit,
		RT:              r.RT,
		MaxReward:       r.MaxReward,
		Loss:            r.Loss,
	}
}

// Fixation is a fixation reduced to where and how long.
type Fixation struct {
	Node     int     `json:"node"`
	Duration float64 `json:"duration"`
}

// Saccade is a saccade reduced to its endpoints and duration.
type Saccade struct {
	StartNode int     `json:"start_node"`
	EndNode   int     `json:"end_node"`
	Duration  float64 `json:"duration"`
}

// Summary is the eye activity of one visit of one trial.
type Summary struct {
	TrialFields
	Visit     int         `json:"visit"`
	Fixations []Fixation  `json:"fixation"`
	Saccades  []Saccade   `json:"saccade"`
	Gaze      map[int]int `json:"gaze"` // samples per node id, -1 for unassigned
}

type visitKey struct{ trial, visit int }

type bucket struct {
	fixations []Fixation
	saccades  []Saccade
	gaze      map[int]int
}

// Match builds maxVisits summaries (visits 0..maxVisits-1) for each distinct
// trial index in trials, in order of first appearance. Gaze counts carry a
// key for every node id of a layout of nodes nodes, plus the unassigned id.
func Match(trials []trial.Record, eye []eyelink.Record, maxVisits, nodes int) []Summary {
	buckets := make(map[visitKey]*bucket)
	get := func(ctx eyelink.Context) *bucket {
		k := visitKey{ctx.TrialIndex, ctx.Visit}
		b, ok := buckets[k]
		if !ok {
			b = &bucket{gaze: make(map[int]int)}
			buckets[k] = b
		}
		return b
	}
	for _, rec := range eye {
		switch r := rec.(type) {
		case eyelink.Fixation:
			b := get(r.Context)
			b.fixations = append(b.fixations, Fixation{Node: r.Node, Duration: r.Duration})
		case eyelink.Saccade:
			b := get(r.Context)
			b.saccades = append(b.saccades, Saccade{StartNode: r.StartNode, EndNode: r.EndNode, Duration: r.Duration})
		case eyelink.Gaze:
			get(r.Context).gaze[r.Node]++
		}
	}

	var out []Summary
	seen := make(map[int]bool)
	for _, tr := range trials {
		if seen[tr.TrialIndex] {
			continue
		}
		seen[tr.TrialIndex] = true
		fields := fieldsOf(tr)
		for v := range maxVisits {
			s := Summary{
				TrialFields: fields,
				Visit:       v,
				Fixations:   []Fixation{},
				Saccades:    []Saccade{},
				Gaze:        make(map[int]int, nodes+1),
			}
			for id := spatial.Unassigned; id < nodes; id++ {
				s.Gaze[id] = 0
			}
			if b, ok := buckets[visitKey{tr.TrialIndex, v}]; ok {
				s.Fixations = append(s.Fixations, b.fixations...)
				s.Saccades = append(s.Saccades, b.saccades...)
				for id, n := range b.gaze {
					s.Gaze[id] = n
				}
			}
			out = append(out, s)
		}
	}
	return out
}
