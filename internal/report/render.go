package report

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/gaze.report/internal/trial"
)

// ErrNoReactionTimes is returned when no trial has a defined RT.
var ErrNoReactionTimes = errors.New("no trials with reaction times")

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

func accuracyBars(title string, groups []Group) *charts.Bar {
	x := make([]string, len(groups))
	acc := make([]opts.BarData, len(groups))
	acc1 := make([]opts.BarData, len(groups))
	for i, g := range groups {
		x[i] = g.Key
		acc[i] = opts.BarData{Value: round3(g.Accuracy), Name: fmt.Sprintf("n=%d", g.Count)}
		acc1[i] = opts.BarData{Value: round3(g.Accuracy1), Name: fmt.Sprintf("n=%d", g.Count)}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "accuracy"}),
	)
	bar.SetXAxis(x).
		AddSeries("accuracy", acc).
		AddSeries("accuracy_1", acc1)
	return bar
}

func rtBars(title string, groups []Group) *charts.Bar {
	var x []string
	var y []opts.BarData
	for _, g := range groups {
		if g.RTMean == nil {
			continue
		}
		x = append(x, g.Key)
		y = append(y, opts.BarData{Value: math.Round(*g.RTMean), Name: fmt.Sprintf("n=%d", g.RTCount)})
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "RT (ms)"}),
	)
	bar.SetXAxis(x).
		AddSeries("mean RT", y, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}

// RenderDashboard writes an HTML page charting s.
func RenderDashboard(w io.Writer, s Summary) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("gaze.report %s", s.Version)
	page.AddCharts(
		accuracyBars("Accuracy by difficulty", s.ByDifficulty),
		accuracyBars("Accuracy by trial type", s.ByType),
		rtBars("Mean RT by difficulty", s.ByDifficulty),
		rtBars("Mean RT by trial type", s.ByType),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}

// WriteRTHistogram writes a PNG histogram of the total reaction times of
// recs using the given number of bins.
func WriteRTHistogram(w io.Writer, recs []trial.Record, bins int) error {
	rts := reactionTimes(recs)
	if len(rts) == 0 {
		return ErrNoReactionTimes
	}
	if bins <= 0 {
		bins = 20
	}

	p := plot.New()
	p.Title.Text = "Reaction time"
	p.X.Label.Text = "RT (ms)"
	p.Y.Label.Text = "trials"

	h, err := plotter.NewHist(plotter.Values(rts), bins)
	if err != nil {
		return fmt.Errorf("histogram: %w", err)
	}
	p.Add(h)

	wt, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render histogram: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write histogram: %w", err)
	}
	return nil
}
