package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/notify"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/telemetry"
)

// handleFailure — обработчик ошибки обязательного шага.
//
// Алерт → ожидание retryBackoff → одна повторная попытка.
// Возвращает outcome повторной попытки и recovered.
// error != nil только если ожидание прервано отменой ctx.
func (o *Orchestrator) handleFailure(
	ctx context.Context,
	logger *slog.Logger,
	step Step,
	rc *RunContext,
	failed StepOutcome,
) (StepOutcome, bool, error) {
	backoff := max(o.retryBackoff, 0)

	o.send(ctx, logger, notify.Message{
		Event:       notify.EventStepFailed,
		Severity:    notify.SeverityError,
		Subject:     "required step " + step.Name + " failed",
		Body:        failed.Error,
		ExecutionID: rc.ExecutionID(),
		Step:        step.Name,
		Fields: map[string]any{
			"attempt":  failed.Attempts,
			"retry_in": backoff.String(),
		},
	})

	logger.Info("waiting before retry", "backoff", backoff)
	if err := o.sleep(ctx, backoff); err != nil {
		return failed, false, err
	}

	retry := o.execute(telemetry.WithLogger(ctx, logger), step, rc, failed.Attempts+1)
	o.metrics.ObserveRetry(step.Name, retry.Success)

	return retry, retry.Success, nil
}

// sleepCtx ждёт d или отмену ctx.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
