package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/backend"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/config"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/monitor"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/mq"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/notify"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/pipeline"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/repo"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/steps"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/telemetry"
)

// runtime — собранные из конфигурации коллабораторы одной команды.
type runtime struct {
	cfg    config.Config
	logger *slog.Logger

	registry *prometheus.Registry
	metrics  *telemetry.Metrics

	backend  backend.Backend
	notifier notify.Notifier

	// tasks и runs заданы только при подключённом Postgres.
	tasks *repo.TaskRepo
	runs  *repo.RunRepo

	pool   *pgxpool.Pool
	amqp   *mq.Connection
	closed bool
}

// openRuntime подключает backend, notifiers и историю.
//
// Недоступный RabbitMQ не мешает run: уведомления остаются в логе.
func openRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	rt.metrics = telemetry.NewMetrics(rt.registry)

	kind := cfg.BackendKind()
	if kind == config.BackendPostgres || cfg.Database.History {
		if err := rt.openDatabase(ctx); err != nil {
			return nil, err
		}
	}

	switch kind {
	case config.BackendSimulated:
		rt.backend = backend.NewSimulated(backend.SimulatedConfig{FailStarts: cfg.Backend.FailStarts})
	case config.BackendHTTP:
		rt.backend = backend.NewHTTP(cfg.Backend.URL, cfg.Backend.Timeout)
	case config.BackendPostgres:
		rt.backend = backend.NewPostgres(rt.tasks)
	default:
		rt.Close()
		return nil, fmt.Errorf("%w: unknown backend kind %q", config.ErrInvalid, kind)
	}

	if !cfg.Database.History {
		rt.runs = nil
	}

	rt.notifier = rt.openNotifier(ctx)

	logger.Debug("runtime ready",
		"backend", kind,
		"history", rt.runs != nil,
		"amqp", rt.amqp != nil,
	)
	return rt, nil
}

func (rt *runtime) openDatabase(ctx context.Context) error {
	pool, err := repo.NewPool(ctx, rt.cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := repo.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return fmt.Errorf("ensure schema: %w", err)
	}

	rt.pool = pool
	rt.tasks = repo.NewTaskRepo(pool)
	rt.runs = repo.NewRunRepo(pool)
	rt.logger.Info("connected to database")
	return nil
}

func (rt *runtime) openNotifier(ctx context.Context) notify.Notifier {
	notifiers := []notify.Notifier{notify.NewLog(rt.logger)}

	if url := rt.cfg.Notify.WebhookURL; url != "" {
		notifiers = append(notifiers, notify.NewWebhook(url, rt.cfg.Notify.Timeout))
	}

	if url := rt.cfg.Notify.RabbitMQURL; url != "" {
		conn, err := rt.connectAMQP(ctx, url)
		if err != nil {
			rt.logger.Warn("rabbitmq unavailable, notifications are logged only", "error", err)
		} else {
			notifiers = append(notifiers, notify.NewMQ(mq.NewPublisher(conn, rt.logger)))
		}
	}

	if len(notifiers) == 1 {
		return notifiers[0]
	}
	return notify.NewMulti(notifiers...)
}

func (rt *runtime) connectAMQP(ctx context.Context, url string) (*mq.Connection, error) {
	if rt.amqp != nil {
		return rt.amqp, nil
	}

	conn, err := mq.NewConnection(url, rt.logger)
	if err != nil {
		return nil, err
	}
	if err := mq.SetupTopology(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setup topology: %w", err)
	}
	rt.amqp = conn
	return conn, nil
}

// monitorConfig — параметры polling из конфигурации.
func (rt *runtime) monitorConfig() monitor.Config {
	return monitor.Config{
		Interval:    rt.cfg.Monitor.Interval,
		MaxWait:     rt.cfg.Monitor.MaxWait,
		MaxAttempts: rt.cfg.Monitor.MaxAttempts,
		Logger:      rt.logger,
		Metrics:     rt.metrics,
	}
}

// orchestrator собирает pipeline из списка шагов конфигурации.
func (rt *runtime) orchestrator() (*pipeline.Orchestrator, error) {
	defs := rt.cfg.Pipeline.Steps
	if len(defs) == 0 {
		defs = steps.DefaultDefinitions()
	}

	built, err := steps.DefaultRegistry().Build(defs, steps.Deps{
		Backend:  rt.backend,
		Notifier: rt.notifier,
		Monitor:  rt.monitorConfig(),
		Simulate: rt.cfg.Simulate,
		Logger:   rt.logger,
		Metrics:  rt.metrics,
	})
	if err != nil {
		return nil, err
	}

	return pipeline.Configure(built, pipeline.Config{
		Name:         rt.cfg.Pipeline.Name,
		RetryBackoff: rt.cfg.Pipeline.RetryBackoff,
		Notifier:     rt.notifier,
		Logger:       rt.logger,
		Metrics:      rt.metrics,
	})
}

// runPipeline выполняет pipeline для cfg.Target и сохраняет историю.
func (rt *runtime) runPipeline(ctx context.Context, orch *pipeline.Orchestrator) (*pipeline.Result, error) {
	rc := pipeline.NewRunContext(map[string]any{steps.InputTarget: rt.cfg.Target})

	res, err := orch.Run(ctx, rc)
	if err != nil {
		return nil, err
	}

	if rt.runs != nil {
		// Сохраняем даже после отмены ctx.
		saveCtx := context.WithoutCancel(ctx)
		if err := rt.runs.Save(saveCtx, res.Record(rt.cfg.Pipeline.Name, rt.cfg.Target)); err != nil {
			rt.logger.Error("failed to save run history",
				"execution_id", res.ExecutionID,
				"error", err,
			)
		}
	}
	return res, nil
}

// runDirect выполняет start + monitor без pipeline.
// Задача, которая уже запущена, не считается ошибкой.
func (rt *runtime) runDirect(ctx context.Context) (monitor.Report, error) {
	logger := telemetry.WithTarget(rt.logger, rt.cfg.Target)

	handle, err := rt.backend.Start(ctx, rt.cfg.Target)
	switch {
	case err == nil:
		logger.Info("task start requested", "status", handle.Status)
	case backend.IsInvalidState(err):
		logger.Warn("task may already be running", "error", err)
	default:
		return monitor.Report{}, fmt.Errorf("start task: %w", err)
	}

	return monitor.New(rt.backend, rt.monitorConfig()).Poll(ctx, rt.cfg.Target)
}

// Close освобождает соединения.
func (rt *runtime) Close() error {
	if rt.closed {
		return nil
	}
	rt.closed = true

	var errs []error
	if rt.amqp != nil {
		if err := rt.amqp.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.pool != nil {
		rt.pool.Close()
	}
	return errors.Join(errs...)
}
