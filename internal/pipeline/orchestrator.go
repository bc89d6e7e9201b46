package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/notify"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/telemetry"
)

const (
	// DefaultRetryBackoff — ожидание перед retry обязательного шага.
	DefaultRetryBackoff = 5 * time.Minute

	// DefaultName — имя pipeline в логах и уведомлениях.
	DefaultName = "migration"

	notifyTimeout = 10 * time.Second
)

// Config — конфигурация Orchestrator.
type Config struct {
	// Name — имя pipeline (по умолчанию "migration").
	Name string

	// RetryBackoff — ожидание перед retry.
	// 0 — DefaultRetryBackoff, отрицательное — retry без ожидания.
	RetryBackoff time.Duration

	// Notifier получает алерты о падении обязательных шагов и итог run.
	// nil — уведомления не отправляются.
	Notifier notify.Notifier

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// Orchestrator выполняет фиксированный список шагов.
// Неизменяем после Configure.
type Orchestrator struct {
	name         string
	steps        []Step
	retryBackoff time.Duration
	notifier     notify.Notifier
	logger       *slog.Logger
	metrics      *telemetry.Metrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Configure проверяет список шагов и создаёт Orchestrator.
func Configure(steps []Step, cfg Config) (*Orchestrator, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", ErrInvalidConfig)
	}

	seen := make(map[string]struct{}, len(steps))
	for i, s := range steps {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: step %d has empty name", ErrInvalidConfig, i)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate step name %q", ErrInvalidConfig, s.Name)
		}
		if s.Action == nil {
			return nil, fmt.Errorf("%w: step %q has no action", ErrInvalidConfig, s.Name)
		}
		seen[s.Name] = struct{}{}
	}

	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Orchestrator{
		name:         cfg.Name,
		steps:        append([]Step(nil), steps...),
		retryBackoff: cfg.RetryBackoff,
		notifier:     cfg.Notifier,
		logger:       cfg.Logger.With("pipeline", cfg.Name),
		metrics:      cfg.Metrics,
		now:          time.Now,
		sleep:        sleepCtx,
	}, nil
}

// StepNames возвращает имена сконфигурированных шагов.
func (o *Orchestrator) StepNames() []string {
	names := make([]string, len(o.steps))
	for i, s := range o.steps {
		names[i] = s.Name
	}
	return names
}

// Run выполняет pipeline.
//
// Ошибки шагов не возвращаются: они попадают в Result.Errors/Warnings.
// error возвращается только при ErrContextConflict.
// nil rc заменяется пустым RunContext.
func (o *Orchestrator) Run(ctx context.Context, rc *RunContext) (*Result, error) {
	if rc == nil {
		rc = NewRunContext(nil)
	}

	executionID := uuid.New()
	if err := rc.bind(executionID.String()); err != nil {
		return nil, err
	}

	logger := telemetry.WithExecutionID(o.logger, executionID.String())
	ctx = telemetry.WithLogger(ctx, logger)

	res := &Result{
		ExecutionID: executionID,
		Steps:       make([]StepOutcome, 0, len(o.steps)),
		Errors:      []string{},
		Warnings:    []string{},
		StartedAt:   o.now(),
	}

	logger.Info("pipeline started", "steps", len(o.steps))

	for _, step := range o.steps {
		if err := ctx.Err(); err != nil {
			o.markCancelled(res, logger, err)
			break
		}

		stepLogger := telemetry.WithStep(logger, step.Name)
		outcome := o.execute(telemetry.WithLogger(ctx, stepLogger), step, rc, 1)
		res.Steps = append(res.Steps, outcome)

		if outcome.Success {
			o.storeResult(rc, stepLogger, step.Name, outcome.Result)
			continue
		}

		if !step.Required {
			stepLogger.Warn("optional step failed", "error", outcome.Error)
			res.Warnings = append(res.Warnings, optionalFailure(step.Name, outcome.Error))
			continue
		}

		stepLogger.Error("required step failed", "error", outcome.Error)
		res.Errors = append(res.Errors, requiredFailure(step.Name, outcome.Error))

		retry, recovered, err := o.handleFailure(ctx, stepLogger, step, rc, outcome)
		last := len(res.Steps) - 1
		if err != nil {
			// Ожидание перед retry прервано.
			o.markCancelled(res, logger, err)
			break
		}

		res.Steps[last] = retry
		if recovered {
			res.Errors = res.Errors[:len(res.Errors)-1]
			o.storeResult(rc, stepLogger, step.Name, retry.Result)
			stepLogger.Info("step recovered after retry")
			continue
		}

		res.Errors[len(res.Errors)-1] = requiredFailure(step.Name, retry.Error)
		stepLogger.Error("step failed after retry, halting pipeline", "error", retry.Error)
		break
	}

	res.FinishedAt = o.now()
	res.TotalDurationMillis = millis(res.FinishedAt.Sub(res.StartedAt))
	res.Success = o.succeeded(res)

	o.metrics.ObserveRun(res.Status(), res.FinishedAt.Sub(res.StartedAt))
	logger.Info("pipeline finished",
		"status", res.Status(),
		"steps_run", len(res.Steps),
		"errors", len(res.Errors),
		"warnings", len(res.Warnings),
		"duration_ms", res.TotalDurationMillis,
	)

	o.notifyCompletion(ctx, logger, res)

	return res, nil
}

// execute выполняет одну попытку шага.
func (o *Orchestrator) execute(ctx context.Context, step Step, rc *RunContext, attempt int) StepOutcome {
	started := o.now()
	outcome := invoke(ctx, step.Action, rc)
	finished := o.now()

	so := StepOutcome{
		Name:           step.Name,
		Required:       step.Required,
		Success:        outcome.IsSuccess(),
		Attempts:       attempt,
		Retried:        attempt > 1,
		StartedAt:      started,
		FinishedAt:     finished,
		DurationMillis: millis(finished.Sub(started)),
	}
	if so.Success {
		so.Result = outcome.Payload()
	} else {
		so.Error = outcome.Err().Error()
		so.err = &StepError{Step: step.Name, Attempt: attempt, Err: outcome.Err()}
	}

	o.metrics.ObserveStep(step.Name, so.Success, finished.Sub(started))
	return so
}

// invoke вызывает action, превращая panic в Failure.
func invoke(ctx context.Context, action Action, rc *RunContext) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Failure(fmt.Errorf("%w: %v", ErrStepPanic, r))
		}
	}()
	return action.Execute(ctx, rc)
}

func (o *Orchestrator) storeResult(rc *RunContext, logger *slog.Logger, step string, payload any) {
	if err := rc.store(step, payload); err != nil {
		logger.Warn("failed to store step result", "error", err)
	}
}

// succeeded: run не отменён и каждый обязательный шаг выполнен успешно.
func (o *Orchestrator) succeeded(res *Result) bool {
	if res.Cancelled {
		return false
	}
	ok := make(map[string]bool, len(res.Steps))
	for _, s := range res.Steps {
		ok[s.Name] = s.Success
	}
	for _, s := range o.steps {
		if s.Required && !ok[s.Name] {
			return false
		}
	}
	return true
}

func (o *Orchestrator) markCancelled(res *Result, logger *slog.Logger, cause error) {
	res.Cancelled = true
	res.Errors = append(res.Errors, fmt.Sprintf("%v: %v", ErrCancelled, cause))
	logger.Warn("pipeline cancelled", "reason", cause)
}

func (o *Orchestrator) notifyCompletion(ctx context.Context, logger *slog.Logger, res *Result) {
	event, severity := notify.EventPipelineCompleted, notify.SeverityInfo
	if !res.Success {
		event, severity = notify.EventPipelineFailed, notify.SeverityError
	}

	body := fmt.Sprintf("%d of %d steps run, %d errors, %d warnings",
		len(res.Steps), len(o.steps), len(res.Errors), len(res.Warnings))

	o.send(ctx, logger, notify.Message{
		Event:       event,
		Severity:    severity,
		Subject:     fmt.Sprintf("pipeline %s %s", o.name, res.Status()),
		Body:        body,
		ExecutionID: res.ExecutionID.String(),
		Fields: map[string]any{
			"status":      res.Status(),
			"steps":       res.StepNames(),
			"errors":      res.Errors,
			"warnings":    res.Warnings,
			"duration_ms": res.TotalDurationMillis,
		},
	})
}

// send доставляет уведомление. Ошибка только логируется.
// Отмена ctx не мешает доставке: используется отдельный таймаут.
func (o *Orchestrator) send(ctx context.Context, logger *slog.Logger, msg notify.Message) {
	if o.notifier == nil {
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := o.notifier.Send(sendCtx, msg); err != nil {
		o.metrics.ObserveNotifyFailure()
		logger.Warn("notification failed", "event", msg.Event, "error", err)
	}
}

func optionalFailure(step, reason string) string {
	return fmt.Sprintf("optional step %s failed: %s", step, reason)
}

func requiredFailure(step, reason string) string {
	return fmt.Sprintf("required step %s failed: %s", step, reason)
}

func millis(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}
