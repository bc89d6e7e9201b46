package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/config"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/mq"
)

func newEventsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Tail pipeline events from RabbitMQ",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config()
			url := cfg.Notify.RabbitMQURL
			if url == "" {
				return fmt.Errorf("%w: rabbitmq url is required (--rabbitmq-url or RABBITMQ_URL)", config.ErrInvalid)
			}

			ctx := cmd.Context()
			conn, err := mq.NewConnection(url, app.logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			out := app.output(cmd)
			out.Success("Listening for pipeline events (Ctrl+C to stop)")

			// Exclusive очередь удаляется брокером вместе с соединением,
			// поэтому объявляется заново при каждой настройке consumer.
			consumer := mq.NewConsumer(conn, app.logger, mq.ConsumerConfig{
				Declare: mq.DeclareTail,
				Handler: func(_ context.Context, d *mq.Delivery) error {
					out.Event(d.Message)
					return nil
				},
			})

			err = consumer.Start(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
