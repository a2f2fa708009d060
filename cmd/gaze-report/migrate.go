package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gaze.report/internal/config"
	"github.com/banshee-data/gaze.report/internal/db"
)

func openForMigration(opts *options) (*db.DB, error) {
	cfg, err := opts.loadConfig(nil)
	if err != nil {
		return nil, err
	}
	if cfg.GetDBPath() == "" {
		return nil, fmt.Errorf("no database configured: use --db, db_path or %s", config.EnvDB)
	}
	return db.OpenDB(cfg.GetDBPath())
}

func newMigrateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the results database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				database, err := openForMigration(opts)
				if err != nil {
					return err
				}
				defer database.Close()
				if err := database.MigrateUp(); err != nil {
					return err
				}
				return printStatus(cmd, database)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				database, err := openForMigration(opts)
				if err != nil {
					return err
				}
				defer database.Close()
				if err := database.MigrateDown(); err != nil {
					return err
				}
				return printStatus(cmd, database)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show applied and available schema versions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				database, err := openForMigration(opts)
				if err != nil {
					return err
				}
				defer database.Close()
				return printStatus(cmd, database)
			},
		},
	)
	return cmd
}

func printStatus(cmd *cobra.Command, database *db.DB) error {
	status, err := database.GetMigrationStatus()
	if err != nil {
		return err
	}
	b, err := json.Marshal(status)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
