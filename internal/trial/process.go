package trial

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/banshee-data/gaze.report/internal/rewardgraph"
)

// Error is a failure to analyse one trial of a session.
type Error struct {
	WID   string
	Index int // 1-based position in the session
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s trial %d: %v", e.WID, e.Index, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// RoundHalf rounds x to the nearest multiple of 0.5, halves rounding up. It
// returns nil for NaN and infinities.
func RoundHalf(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	v := math.Floor(x*2+0.5) / 2
	return &v
}

func ptr[T any](v T) *T { return &v }

// visitedStates returns the state of every event that carries one, in order.
func visitedStates(events []Event) []int {
	var states []int
	for _, ev := range events {
		if ev.State != nil {
			states = append(states, *ev.State)
		}
	}
	return states
}

func selectedStates(events []Event) []int {
	var states []int
	for _, ev := range events {
		if ev.Name == EventSelect && ev.Selected != nil {
			states = append(states, *ev.Selected)
		}
	}
	return states
}

// reactionTimes returns the latencies between the first three visit events,
// in milliseconds. All three are nil with fewer than three visits.
func reactionTimes(events []Event) (first, second, total *float64) {
	var times []float64
	for _, ev := range events {
		if ev.Name == EventVisit {
			times = append(times, ev.Time)
		}
	}
	if len(times) < 3 {
		return nil, nil, nil
	}
	return ptr((times[1] - times[0]) * 1000),
		ptr((times[2] - times[1]) * 1000),
		ptr((times[2] - times[0]) * 1000)
}

func layerNodes(d rewardgraph.Differential, ok bool) ([2]*int, *float64) {
	if !ok {
		return [2]*int{}, nil
	}
	return [2]*int{ptr(d.Nodes[0]), ptr(d.Nodes[1])}, ptr(d.Diff)
}

// Process analyses one trial. index is the trial's 1-based position in its
// session and wid the participant id; both are copied to the record.
func Process(in Input, wid string, index int) (Record, error) {
	g, r, start := in.Trial.Graph, in.Trial.Rewards, in.Trial.Start
	if err := rewardgraph.Validate(g, start); err != nil {
		return Record{}, err
	}

	best, err := rewardgraph.Best(g, r, start)
	if err != nil {
		return Record{}, fmt.Errorf("best reward: %w", err)
	}
	avg, err := rewardgraph.Average(g, r, start)
	if err != nil {
		return Record{}, fmt.Errorf("average reward: %w", err)
	}
	connected, unconnected, err := rewardgraph.Connected(g, start)
	if err != nil {
		return Record{}, fmt.Errorf("connected nodes: %w", err)
	}
	category, err := rewardgraph.Categorize(g, start, r)
	if err != nil {
		return Record{}, fmt.Errorf("categorize: %w", err)
	}
	bestPath, err := rewardgraph.BestPath(g, r, start)
	if err != nil {
		return Record{}, fmt.Errorf("best path: %w", err)
	}

	visits := visitedStates(in.Events)
	choice := slices.Clone(visits)
	slices.Sort(choice)
	choice = slices.Compact(choice)

	var realized float64
	for _, node := range choice {
		v, err := r.At(node)
		if err != nil {
			return Record{}, fmt.Errorf("visited state: %w", err)
		}
		realized += v
	}

	rec := Record{
		Graph:           g,
		Rewards:         r,
		Start:           start,
		Events:          in.Events,
		WID:             wid,
		TrialIndex:      index,
		Choice:          choice,
		ConnectNodes:    connected,
		NonConnectNodes: unconnected,
		Difficulty:      RoundHalf(avg),
		Type:            category.Label,
		MaxReward:       best,
		Loss:            best - realized,
		Extra:           in.Trial.Extra,
	}
	if rec.Choice == nil {
		rec.Choice = []int{}
	}
	if rec.NonConnectNodes == nil {
		rec.NonConnectNodes = []int{}
	}
	if category.Defined() {
		rec.DF = ptr(category.Depth)
	}
	rec.Layer1, rec.Difficulty1 = layerNodes(rewardgraph.Layer1(r, g))
	rec.Layer2, rec.Difficulty2 = layerNodes(rewardgraph.Layer2(selectedStates(in.Events), r, g))

	if realized == best {
		rec.Accuracy = 1
	}
	if len(visits) > 1 && len(bestPath) > 1 && visits[1] == bestPath[1] {
		rec.Accuracy1 = 1
	}
	rec.RTFirstVisit, rec.RTSecondVisit, rec.RT = reactionTimes(in.Events)
	return rec, nil
}

// ProcessSession analyses every trial of s in order. Trials that fail are
// reported in the joined error as *Error values and do not stop the others;
// trial indices count failed trials too.
func ProcessSession(s *Session) ([]Record, error) {
	records := make([]Record, 0, len(s.Trials))
	var errs []error
	for i, in := range s.Trials {
		rec, err := Process(in, s.WID, i+1)
		if err != nil {
			errs = append(errs, &Error{WID: s.WID, Index: i + 1, Err: err})
			continue
		}
		records = append(records, rec)
	}
	return records, errors.Join(errs...)
}
