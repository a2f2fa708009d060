// Command gaze-report turns raw experiment logs into analysis-ready tables:
// trial records from session files, eye records from EyeLink sample logs,
// and per-visit summaries joining the two.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gaze.report/internal/config"
	"github.com/banshee-data/gaze.report/internal/db"
	"github.com/banshee-data/gaze.report/internal/version"
)

// options holds the global flags shared by every subcommand.
type options struct {
	configPath string
	dbPath     string
	envFiles   []string
}

// loadConfig resolves the configuration: file, then .env and environment,
// then flags, then a positional version argument.
func (o *options) loadConfig(args []string) (*config.Config, error) {
	cfg := config.Empty()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(o.envFiles...); err != nil {
		return nil, err
	}
	if o.dbPath != "" {
		cfg.DBPath = &o.dbPath
	}
	if len(args) > 0 {
		v := args[0]
		cfg.Version = &v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore opens and migrates the results database, or returns nil when
// none is configured.
func openStore(cfg *config.Config) (*db.DB, error) {
	if cfg.GetDBPath() == "" {
		return nil, nil
	}
	return db.NewDB(cfg.GetDBPath())
}

func requireStore(cfg *config.Config) (*db.DB, error) {
	if cfg.GetDBPath() == "" {
		return nil, fmt.Errorf("no database configured: use --db, db_path or %s", config.EnvDB)
	}
	return db.NewDB(cfg.GetDBPath())
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "gaze-report",
		Short:         "Eye-tracking and reward-graph navigation analysis pipeline",
		Long:          `gaze-report parses EyeLink sample logs and behavioural session files from a graph-navigation task and writes per-trial analyses, classified eye records and per-visit summaries.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a JSON configuration file")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Path to the SQLite results database")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "Environment files to load (default .env)")

	root.AddCommand(
		newProcessCmd(opts),
		newStageCmd(opts, "trials", "Analyse session files into trial records"),
		newStageCmd(opts, "eye", "Parse EyeLink sample logs into eye tables"),
		newStageCmd(opts, "merge", "Join trial records and eye tables into visit summaries"),
		newReportCmd(opts),
		newServeCmd(opts),
		newMigrateCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build metadata",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Current())
		},
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
