package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/config"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/telemetry"
)

// ErrRunFailed — run завершился неуспешно; main возвращает код 1.
var ErrRunFailed = errors.New("migration run failed")

// App — общее состояние команд: конфигурация после флагов и логгер.
type App struct {
	configPath string
	verbose    bool

	cfg    config.Config
	logger *slog.Logger
}

// NewRootCmd создаёт корневую команду migrator со всеми подкомандами.
func NewRootCmd(version string) *cobra.Command {
	app := &App{}

	root := &cobra.Command{
		Use:           "migrator",
		Short:         "Replication task migration orchestrator",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&app.configPath, "config", "c", "", "Path to YAML config file")
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringP("target", "t", "", "Replication task reference")
	flags.String("mode", "", "Run mode: orchestrator or direct")
	flags.StringP("output", "o", "", "Output format: table or json")
	flags.Bool("json", false, "Shorthand for --output json")
	flags.Bool("simulate", false, "Use the in-memory simulated backend")
	flags.String("backend", "", "Backend kind: simulated, http or postgres")
	flags.String("backend-url", "", "Base URL of the migration control API (http backend)")
	flags.String("db-url", "", "Postgres DSN (postgres backend and run history)")
	flags.Bool("history", false, "Persist run history to Postgres")
	flags.String("webhook-url", "", "Webhook for notifications")
	flags.String("rabbitmq-url", "", "RabbitMQ URL for notifications and events")
	flags.Duration("retry-backoff", 0, "Wait before retrying a failed required step")
	flags.Duration("poll-interval", 0, "Interval between status polls")
	flags.Duration("max-wait", 0, "Total polling budget")
	flags.Int("max-attempts", 0, "Explicit number of status polls")

	root.AddCommand(
		newRunCmd(app),
		newStatusCmd(app),
		newHistoryCmd(app),
		newEventsCmd(app),
		newServeCmd(app),
		newScheduleCmd(app),
	)

	return root
}

// Config возвращает итоговую конфигурацию.
func (a *App) Config() config.Config {
	return a.cfg
}

// load читает конфигурацию, применяет явно заданные флаги и настраивает логгер.
func (a *App) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level := telemetry.LogLevel()
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = telemetry.NewLogger(cmd.ErrOrStderr(), os.Getenv("LOG_FORMAT"), level)
	return nil
}

func (a *App) output(cmd *cobra.Command) *Output {
	return NewOutputTo(cmd.OutOrStdout(), cmd.ErrOrStderr(), a.cfg.Output == config.FormatJSON)
}

// applyFlags переносит в cfg только флаги, заданные явно.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	strs := []struct {
		name string
		dst  *string
	}{
		{"target", &cfg.Target},
		{"mode", &cfg.Mode},
		{"output", &cfg.Output},
		{"backend", &cfg.Backend.Kind},
		{"backend-url", &cfg.Backend.URL},
		{"db-url", &cfg.Database.URL},
		{"webhook-url", &cfg.Notify.WebhookURL},
		{"rabbitmq-url", &cfg.Notify.RabbitMQURL},
	}
	for _, s := range strs {
		if !flags.Changed(s.name) {
			continue
		}
		v, err := flags.GetString(s.name)
		if err != nil {
			return err
		}
		*s.dst = v
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"simulate", &cfg.Simulate},
		{"history", &cfg.Database.History},
	}
	for _, b := range bools {
		if !flags.Changed(b.name) {
			continue
		}
		v, err := flags.GetBool(b.name)
		if err != nil {
			return err
		}
		*b.dst = v
	}

	// Явный выбор реального backend отключает симуляцию по умолчанию.
	if flags.Changed("backend") && !flags.Changed("simulate") && cfg.Backend.Kind != config.BackendSimulated {
		cfg.Simulate = false
	}

	if flags.Changed("json") {
		if v, _ := flags.GetBool("json"); v {
			cfg.Output = config.FormatJSON
		}
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"retry-backoff", &cfg.Pipeline.RetryBackoff},
		{"poll-interval", &cfg.Monitor.Interval},
		{"max-wait", &cfg.Monitor.MaxWait},
	}
	for _, d := range durations {
		if !flags.Changed(d.name) {
			continue
		}
		v, err := flags.GetDuration(d.name)
		if err != nil {
			return err
		}
		*d.dst = v
	}

	if flags.Changed("max-attempts") {
		v, err := flags.GetInt("max-attempts")
		if err != nil {
			return fmt.Errorf("max-attempts: %w", err)
		}
		cfg.Monitor.MaxAttempts = v
	}
	return nil
}
