package cli

import (
	"github.com/spf13/cobra"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/api"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task control API with /healthz and /metrics",
		Long: `Serves the HTTP control API over the configured backend.

With the postgres backend the API is the control plane of the replication
task table: external agents register tasks and report progress through it,
and the http backend of another migrator talks to it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config()
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			rt, err := openRuntime(cmd.Context(), cfg, app.logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			handlerCfg := api.Config{
				Backend: rt.backend,
				Logger:  app.logger,
			}
			if rt.tasks != nil {
				handlerCfg.Tasks = rt.tasks
			}
			if rt.runs != nil {
				handlerCfg.Runs = rt.runs
			}

			mux := healthMux(rt.registry)
			api.NewHandler(handlerCfg).RegisterRoutes(mux)

			return serveHTTP(cmd.Context(), app.logger, cfg.Server.Addr, mux)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	return cmd
}
