package cli

import (
	"github.com/spf13/cobra"
)

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status [REF]",
		Short: "Describe a replication task once",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config()
			if len(args) == 1 {
				cfg.Target = args[0]
			}
			if err := cfg.RequireTarget(); err != nil {
				return err
			}

			rt, err := openRuntime(cmd.Context(), cfg, app.logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			task, err := rt.backend.Describe(cmd.Context(), cfg.Target)
			if err != nil {
				return err
			}

			app.output(cmd).Task(task)
			return nil
		},
	}
}
