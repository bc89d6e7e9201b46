package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/pipeline"
)

const (
	// StepTypeDelay — тип шага задержки.
	StepTypeDelay = "delay"

	// Ключи конфигурации delay.
	configDuration   = "duration"
	configDurationMs = "duration_ms"
)

// DelayKind — шаг задержки.
//
// Приостанавливает pipeline, например чтобы дать агенту репликации
// подготовить endpoints. Прерывается отменой context.
//
// Конфигурация:
//
//	{
//	    "duration": "10s",     // или duration_sec
//	    // или
//	    "duration_ms": 5000
//	}
type DelayKind struct{}

// NewDelayKind создаёт новый DelayKind.
func NewDelayKind() *DelayKind {
	return &DelayKind{}
}

// Type возвращает тип шага.
func (k *DelayKind) Type() string {
	return StepTypeDelay
}

// Build проверяет длительность и создаёт action.
func (k *DelayKind) Build(def Definition, _ Deps) (pipeline.Action, error) {
	duration, err := parseDelay(def.Config)
	if err != nil {
		return nil, err
	}

	return pipeline.ActionFunc(func(ctx context.Context, _ *pipeline.RunContext) pipeline.Outcome {
		timer := time.NewTimer(duration)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return pipeline.Failure(fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err()))
		case <-timer.C:
			return pipeline.Success(map[string]any{
				"duration_ms": duration.Milliseconds(),
			})
		}
	}), nil
}

// parseDelay извлекает длительность из конфигурации.
func parseDelay(config map[string]any) (time.Duration, error) {
	d, err := GetConfigDuration(config, configDuration)
	if err != nil {
		return 0, err
	}
	if d > 0 {
		return d, nil
	}

	if ms := GetConfigInt(config, configDurationMs); ms > 0 {
		return time.Duration(ms) * time.Millisecond, nil
	}

	return 0, fmt.Errorf("%w: %s: duration, duration_sec or duration_ms required",
		ErrInvalidConfig, StepTypeDelay)
}
