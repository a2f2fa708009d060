package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gaze.report/internal/config"
	"github.com/banshee-data/gaze.report/internal/fsutil"
	"github.com/banshee-data/gaze.report/internal/monitoring"
	"github.com/banshee-data/gaze.report/internal/report"
	"github.com/banshee-data/gaze.report/internal/trial"
)

// loadTrials reads trial records from the database when one is configured,
// otherwise from the processed trial_data files.
func loadTrials(cfg *config.Config, fsys fsutil.FileSystem) ([]trial.Record, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if store != nil {
		defer store.Close()
		return store.Trials(cfg.GetVersion(), "")
	}

	paths, err := fsutil.Glob(fsys, cfg.ProcessedDir(config.DirTrialData), "*.json", cfg.GetSkipPatterns(), false)
	if err != nil {
		return nil, err
	}
	var all []trial.Record
	for _, p := range paths {
		b, err := fsys.ReadFile(p)
		if err != nil {
			return nil, err
		}
		var recs []trial.Record
		if err := json.Unmarshal(b, &recs); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		all = append(all, recs...)
	}
	return all, nil
}

func newReportCmd(opts *options) *cobra.Command {
	var outDir string
	var bins int
	cmd := &cobra.Command{
		Use:   "report [version]",
		Short: "Write the summary JSON, dashboard HTML and RT histogram",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(args)
			if err != nil {
				return err
			}
			fsys := fsutil.OSFileSystem{}
			recs, err := loadTrials(cfg, fsys)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cfg.ProcessedDir("report")
			}
			if err := fsys.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			sum := report.Summarize(cfg.GetVersion(), recs)
			b, err := json.MarshalIndent(sum, "", "  ")
			if err != nil {
				return err
			}
			outputs := map[string][]byte{"summary.json": append(b, '\n')}

			var page bytes.Buffer
			if err := report.RenderDashboard(&page, sum); err != nil {
				return err
			}
			outputs["dashboard.html"] = page.Bytes()

			var png bytes.Buffer
			switch err := report.WriteRTHistogram(&png, recs, bins); {
			case errors.Is(err, report.ErrNoReactionTimes):
				monitoring.Logf("skipping rt.png: %v", err)
			case err != nil:
				return err
			default:
				outputs["rt.png"] = png.Bytes()
			}

			for _, name := range []string{"summary.json", "dashboard.html", "rt.png"} {
				data, ok := outputs[name]
				if !ok {
					continue
				}
				path := filepath.Join(outDir, name)
				if err := fsys.WriteFile(path, data, 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d trials from %d participants\n", sum.Overall.Count, sum.Participants)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default processed/<version>/report)")
	cmd.Flags().IntVar(&bins, "bins", 20, "Number of RT histogram bins")
	return cmd
}
