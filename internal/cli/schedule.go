package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/config"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/scheduler"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/telemetry"
)

func newScheduleCmd(app *App) *cobra.Command {
	var expr string
	var timezone string
	var maxRuns int
	var runNow bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the migration pipeline on a cron schedule",
		Long: `Runs the pipeline for --target on a cron schedule and serves /metrics.

Runs never overlap: the next due time is computed after the current run
finishes. Failed runs are logged and the schedule continues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config()
			if cmd.Flags().Changed("cron") {
				cfg.Schedule = expr
			}
			if cfg.Schedule == "" {
				return fmt.Errorf("%w: cron expression is required (--cron or MIGRATOR_SCHEDULE)", config.ErrInvalid)
			}
			if err := cfg.RequireTarget(); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			rt, err := openRuntime(ctx, cfg, app.logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			orch, err := rt.orchestrator()
			if err != nil {
				return err
			}

			out := app.output(cmd)
			sched, err := scheduler.New(scheduler.Config{
				Expr:     cfg.Schedule,
				Timezone: timezone,
				MaxRuns:  maxRuns,
				Logger:   telemetry.WithTarget(app.logger, cfg.Target),
				Run: func(ctx context.Context) error {
					res, err := rt.runPipeline(ctx, orch)
					if err != nil {
						return err
					}
					out.Result(res)
					if !res.Success {
						return fmt.Errorf("%w: execution %s is %s", ErrRunFailed, res.ExecutionID, res.Status())
					}
					return nil
				},
			})
			if err != nil {
				return err
			}

			metricsErr := make(chan error, 1)
			if cfg.Server.MetricsAddr != "" {
				go func() {
					metricsErr <- serveHTTP(ctx, app.logger, cfg.Server.MetricsAddr, healthMux(rt.registry))
				}()
			} else {
				close(metricsErr)
			}

			if runNow {
				if err := sched.Tick(ctx); err != nil {
					app.logger.Error("immediate run failed", "error", err)
				}
			}

			err = sched.Start(ctx)
			cancel()
			if mErr := <-metricsErr; mErr != nil {
				app.logger.Error("metrics server error", "error", mErr)
			}
			if cmd.Context().Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&expr, "cron", "", "Cron expression or descriptor (@hourly, @every 10m)")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone for the cron expression (default UTC)")
	cmd.Flags().IntVar(&maxRuns, "max-runs", 0, "Stop after N runs (0 = unlimited)")
	cmd.Flags().BoolVar(&runNow, "now", false, "Run once immediately before waiting for the schedule")

	return cmd
}
