package main

import (
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gaze.report/internal/api"
	"github.com/banshee-data/gaze.report/internal/monitoring"
)

func newServeCmd(opts *options) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve [version]",
		Short: "Serve stored results, the dashboard and admin debug routes over HTTP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(args)
			if err != nil {
				return err
			}
			store, err := requireStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			mux := http.NewServeMux()
			// mount the admin debugging routes (accessible only in dev mode or over Tailscale)
			if err := store.AttachAdminRoutes(mux); err != nil {
				return err
			}
			h := api.NewServer(store, cfg.GetVersion()).Handler(mux)

			ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			monitoring.Logf("serving %s results on %s", cfg.GetVersion(), listen)
			return api.ListenAndServe(ctx, listen, h)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":8080", "HTTP listen address")
	return cmd
}
