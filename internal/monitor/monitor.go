// Package monitor опрашивает backend до финального статуса задачи
// или исчерпания попыток.
//
//	attempts = MaxWait / Interval (минимум 1, MaxAttempts переопределяет)
//
//	attempt 1 → Describe → running/completed → OutcomeRunning
//	                     → failed/stopped    → OutcomeFailed
//	                     → иначе / ошибка    → wait Interval → attempt 2 ...
//	после последней попытки ожидания нет    → OutcomeTimeout
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/telemetry"
)

const (
	DefaultInterval = 30 * time.Second
	DefaultMaxWait  = 5 * time.Minute
)

var (
	// ErrTimeout — попытки исчерпаны, финальный статус не получен.
	ErrTimeout = errors.New("monitor timeout")

	// ErrTaskFailed — задача перешла в failed/stopped.
	ErrTaskFailed = errors.New("replication task failed")
)

// Outcome — итог polling.
type Outcome string

const (
	OutcomeRunning   Outcome = "running"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeCancelled Outcome = "cancelled"
)

// Describer — часть backend, нужная poller.
type Describer interface {
	Describe(ctx context.Context, ref string) (domain.Task, error)
}

// Progress вызывается после каждой попытки.
// err != nil, если Describe завершился ошибкой.
type Progress func(attempt, total int, task domain.Task, err error)

// Config — конфигурация Poller.
type Config struct {
	// Interval — пауза между попытками (по умолчанию 30s).
	Interval time.Duration

	// MaxWait — общий бюджет ожидания (по умолчанию 5m).
	MaxWait time.Duration

	// MaxAttempts — явное число попыток; 0 — MaxWait / Interval.
	MaxAttempts int

	OnProgress Progress
	Logger     *slog.Logger
	Metrics    *telemetry.Metrics
}

// Poller опрашивает Describer.
type Poller struct {
	backend  Describer
	interval time.Duration
	attempts int
	progress Progress
	logger   *slog.Logger
	metrics  *telemetry.Metrics

	sleep func(ctx context.Context, d time.Duration) error
}

// Report — результат Poll.
type Report struct {
	Outcome  Outcome     `json:"outcome"`
	Task     domain.Task `json:"task"`
	Attempts int         `json:"attempts"`
	Total    int         `json:"total_attempts"`
}

// Succeeded возвращает true для OutcomeRunning.
func (r Report) Succeeded() bool {
	return r.Outcome == OutcomeRunning
}

// New создаёт Poller.
func New(backend Describer, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultMaxWait
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Poller{
		backend:  backend,
		interval: cfg.Interval,
		attempts: Attempts(cfg.Interval, cfg.MaxWait, cfg.MaxAttempts),
		progress: cfg.OnProgress,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		sleep:    sleepCtx,
	}
}

// Attempts вычисляет число попыток.
func Attempts(interval, maxWait time.Duration, override int) int {
	if override > 0 {
		return override
	}
	if interval <= 0 {
		return 1
	}
	return max(int(maxWait/interval), 1)
}

// TotalAttempts возвращает число попыток poller.
func (p *Poller) TotalAttempts() int {
	return p.attempts
}

// Poll опрашивает задачу ref.
//
// error != nil для всех исходов, кроме OutcomeRunning:
// ErrTaskFailed, ErrTimeout или ошибка ctx.
func (p *Poller) Poll(ctx context.Context, ref string) (Report, error) {
	logger := telemetry.WithTarget(p.logger, ref)
	report := Report{Total: p.attempts}

	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			report.Outcome = OutcomeCancelled
			return report, err
		}

		report.Attempts = attempt
		task, err := p.backend.Describe(ctx, ref)
		p.report(attempt, task, err)

		switch {
		case err != nil:
			if ctx.Err() != nil {
				report.Outcome = OutcomeCancelled
				return report, ctx.Err()
			}
			p.metrics.ObservePoll("")
			logger.Warn("describe failed", "attempt", attempt, "of", p.attempts, "error", err)

		case task.Status.IsSuccess():
			p.metrics.ObservePoll(string(task.Status))
			report.Task = task
			report.Outcome = OutcomeRunning
			logger.Info("replication task is running",
				"status", task.Status, "progress", task.ProgressPercent, "attempt", attempt)
			return report, nil

		case task.Status.IsFailure():
			p.metrics.ObservePoll(string(task.Status))
			report.Task = task
			report.Outcome = OutcomeFailed
			return report, fmt.Errorf("%w: task %s is %s: %s", ErrTaskFailed, ref, task.Status, task.Error)

		default:
			p.metrics.ObservePoll(string(task.Status))
			report.Task = task
			logger.Info("replication task progress",
				"status", task.Status, "progress", task.ProgressPercent, "attempt", attempt, "of", p.attempts)
		}

		if attempt == p.attempts {
			break
		}
		if err := p.sleep(ctx, p.interval); err != nil {
			report.Outcome = OutcomeCancelled
			return report, err
		}
	}

	report.Outcome = OutcomeTimeout
	return report, fmt.Errorf("%w: task %s not running after %d attempts", ErrTimeout, ref, p.attempts)
}

func (p *Poller) report(attempt int, task domain.Task, err error) {
	if p.progress != nil {
		p.progress(attempt, p.attempts, task, err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
