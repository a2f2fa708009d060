// Package report summarises analysed trials: accuracy and reaction time by
// difficulty and by trial type, as JSON, an HTML dashboard and an RT
// histogram.
package report

import (
	"cmp"
	"math"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/gaze.report/internal/rewardgraph"
	"github.com/banshee-data/gaze.report/internal/trial"
)

// Undefined keys trials whose difficulty could not be computed.
const Undefined = rewardgraph.LabelUndefined

// Group aggregates the trials sharing one difficulty or type.
type Group struct {
	Key       string   `json:"key"`
	Count     int      `json:"count"`
	Accuracy  float64  `json:"accuracy"`
	Accuracy1 float64  `json:"accuracy_1"`
	RTCount   int      `json:"rt_count"`
	RTMean    *float64 `json:"rt_mean"`
	RTStdDev  *float64 `json:"rt_stddev"`
}

// Summary is the report for one experiment version.
type Summary struct {
	Version      string  `json:"version"`
	Participants int     `json:"participants"`
	Overall      Group   `json:"overall"`
	ByDifficulty []Group `json:"by_difficulty"`
	ByType       []Group `json:"by_type"`
}

func difficultyKey(r trial.Record) string {
	if r.Difficulty == nil {
		return Undefined
	}
	return strconv.FormatFloat(*r.Difficulty, 'f', -1, 64)
}

func typeKey(r trial.Record) string {
	if r.Type == "" {
		return Undefined
	}
	return r.Type
}

func group(key string, recs []trial.Record) Group {
	g := Group{Key: key, Count: len(recs)}
	if len(recs) == 0 {
		return g
	}
	acc := make([]float64, len(recs))
	acc1 := make([]float64, len(recs))
	var rts []float64
	for i, r := range recs {
		acc[i] = float64(r.Accuracy)
		acc1[i] = float64(r.Accuracy1)
		if r.RT != nil {
			rts = append(rts, *r.RT)
		}
	}
	g.Accuracy = stat.Mean(acc, nil)
	g.Accuracy1 = stat.Mean(acc1, nil)
	g.RTCount = len(rts)
	switch len(rts) {
	case 0:
	case 1:
		g.RTMean = &rts[0]
	default:
		mean, std := stat.MeanStdDev(rts, nil)
		g.RTMean, g.RTStdDev = &mean, &std
	}
	return g
}

func groupBy(recs []trial.Record, key func(trial.Record) string) map[string][]trial.Record {
	out := make(map[string][]trial.Record)
	for _, r := range recs {
		k := key(r)
		out[k] = append(out[k], r)
	}
	return out
}

// compareDifficulty orders numeric keys ascending with Undefined last.
func compareDifficulty(a, b string) int {
	fa, erra := strconv.ParseFloat(a, 64)
	fb, errb := strconv.ParseFloat(b, 64)
	switch {
	case erra != nil && errb != nil:
		return cmp.Compare(a, b)
	case erra != nil:
		return 1
	case errb != nil:
		return -1
	}
	return cmp.Compare(fa, fb)
}

// Summarize aggregates recs, which may span several participants.
func Summarize(version string, recs []trial.Record) Summary {
	s := Summary{Version: version, Overall: group("all", recs)}

	wids := make(map[string]bool)
	for _, r := range recs {
		wids[r.WID] = true
	}
	s.Participants = len(wids)

	byDiff := groupBy(recs, difficultyKey)
	keys := make([]string, 0, len(byDiff))
	for k := range byDiff {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareDifficulty)
	for _, k := range keys {
		s.ByDifficulty = append(s.ByDifficulty, group(k, byDiff[k]))
	}

	byType := groupBy(recs, typeKey)
	keys = keys[:0]
	for k := range byType {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		s.ByType = append(s.ByType, group(k, byType[k]))
	}
	return s
}

// reactionTimes returns the defined total RTs of recs in milliseconds.
func reactionTimes(recs []trial.Record) []float64 {
	var out []float64
	for _, r := range recs {
		if r.RT != nil && !math.IsNaN(*r.RT) {
			out = append(out, *r.RT)
		}
	}
	return out
}
