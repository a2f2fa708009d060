package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gaze.report/internal/batch"
	"github.com/banshee-data/gaze.report/internal/config"
	"github.com/banshee-data/gaze.report/internal/fsutil"
)

type pipelineFlags struct {
	force bool
}

func newRunner(cfg *config.Config, flags *pipelineFlags) (*batch.Runner, func(), error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {}
	ropts := []batch.Option{batch.WithForce(flags.force)}
	if store != nil {
		ropts = append(ropts, batch.WithStore(store))
		closeFn = func() { store.Close() }
	}
	r, err := batch.NewRunner(cfg, fsutil.OSFileSystem{}, ropts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return r, closeFn, nil
}

// printSummaries writes one line per stage and one per failed file, and
// returns an error when any file failed.
func printSummaries(w io.Writer, sums []*batch.Summary) error {
	failed := 0
	for _, s := range sums {
		processed := len(s.Files) - s.Failed() - s.Skipped()
		fmt.Fprintf(w, "%-6s %s: %d files, %d processed, %d skipped, %d failed (run %s)\n",
			s.Stage, s.Version, len(s.Files), processed, s.Skipped(), s.Failed(), s.RunID)
		for _, f := range s.Files {
			if f.Err != nil {
				fmt.Fprintf(w, "  FAIL %s: %v\n", f.Path, f.Err)
			}
		}
		failed += s.Failed()
	}
	if failed > 0 {
		return fmt.Errorf("%d input files failed", failed)
	}
	return nil
}

func newProcessCmd(opts *options) *cobra.Command {
	flags := &pipelineFlags{}
	cmd := &cobra.Command{
		Use:   "process [version]",
		Short: "Run the trials, eye and merge stages in order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(args)
			if err != nil {
				return err
			}
			r, closeFn, err := newRunner(cfg, flags)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			sums, err := r.Process(ctx)
			if perr := printSummaries(cmd.OutOrStdout(), sums); err == nil {
				err = perr
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&flags.force, "force", false, "Reprocess inputs that are unchanged since the last run")
	return cmd
}

func newStageCmd(opts *options, name, short string) *cobra.Command {
	flags := &pipelineFlags{}
	cmd := &cobra.Command{
		Use:   name + " [version]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := batch.ParseStage(name)
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig(args)
			if err != nil {
				return err
			}
			r, closeFn, err := newRunner(cfg, flags)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			s, err := r.Run(ctx, stage)
			if err != nil {
				return err
			}
			return printSummaries(cmd.OutOrStdout(), []*batch.Summary{s})
		},
	}
	cmd.Flags().BoolVar(&flags.force, "force", false, "Reprocess inputs that are unchanged since the last run")
	return cmd
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
