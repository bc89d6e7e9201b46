package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/config"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/repo"
)

func newHistoryCmd(app *App) *cobra.Command {
	var status string
	var limit int
	var offset int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List persisted pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config()
			if cfg.Database.URL == "" {
				return fmt.Errorf("%w: database url is required (--db-url or DB_URL)", config.ErrInvalid)
			}

			filter := repo.RunFilter{
				Target: cfg.Target,
				Status: domain.RunStatus(status),
				Limit:  limit,
				Offset: offset,
			}
			if status != "" && !filter.Status.IsValid() {
				return errors.New("status must be succeeded, failed or cancelled")
			}

			// История читается независимо от флага history.
			cfg.Database.History = true
			rt, err := openRuntime(cmd.Context(), cfg, app.logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			runs, err := rt.runs.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			app.output(cmd).Runs(runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (succeeded, failed, cancelled)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of results to skip")

	return cmd
}
