package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/config"
)

func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the replication task and wait until it is running",
		Long: `Runs the migration for --target.

In orchestrator mode the configured step pipeline is executed with one retry
per failed required step. In direct mode the task is started and polled
without the pipeline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config()
			if err := cfg.RequireTarget(); err != nil {
				return err
			}

			ctx := cmd.Context()
			rt, err := openRuntime(ctx, cfg, app.logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := app.output(cmd)

			if cfg.Mode == config.ModeDirect {
				report, err := rt.runDirect(ctx)
				out.Report(report)
				if err != nil {
					return fmt.Errorf("%w: %w", ErrRunFailed, err)
				}
				return nil
			}

			orch, err := rt.orchestrator()
			if err != nil {
				return err
			}
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
	}
}
