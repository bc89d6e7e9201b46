package steps

import (
	"context"
	"errors"
	"fmt"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/monitor"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/pipeline"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/telemetry"
)

// StepTypeMonitor — ожидание рабочего статуса задачи.
const StepTypeMonitor = "monitor"

// MonitorKind опрашивает backend через monitor.Poller.
//
// Конфигурация (переопределяет Deps.Monitor):
//
//	{
//	    "interval": "30s",          // или interval_sec
//	    "max_wait": "5m",           // или max_wait_sec
//	    "max_attempts": 10,
//	    "accept_timeout": false     // timeout считать успехом
//	}
type MonitorKind struct{}

// NewMonitorKind создаёт MonitorKind.
func NewMonitorKind() *MonitorKind {
	return &MonitorKind{}
}

// Type возвращает тип шага.
func (k *MonitorKind) Type() string {
	return StepTypeMonitor
}

// Build создаёт action.
func (k *MonitorKind) Build(def Definition, deps Deps) (pipeline.Action, error) {
	if err := deps.requireBackend(StepTypeMonitor); err != nil {
		return nil, err
	}

	cfg := deps.Monitor
	interval, err := GetConfigDuration(def.Config, "interval")
	if err != nil {
		return nil, err
	}
	if interval > 0 {
		cfg.Interval = interval
	}
	maxWait, err := GetConfigDuration(def.Config, "max_wait")
	if err != nil {
		return nil, err
	}
	if maxWait > 0 {
		cfg.MaxWait = maxWait
	}
	if n := GetConfigInt(def.Config, "max_attempts"); n > 0 {
		cfg.MaxAttempts = n
	}
	if cfg.Logger == nil {
		cfg.Logger = deps.logger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = deps.Metrics
	}
	acceptTimeout := GetConfigBool(def.Config, "accept_timeout", false)

	poller := monitor.New(deps.Backend, cfg)

	return pipeline.ActionFunc(func(ctx context.Context, rc *pipeline.RunContext) pipeline.Outcome {
		target := resolveTarget(def.Config, rc)
		if target == "" {
			return pipeline.Failure(fmt.Errorf("%w: %s: target is required", ErrInvalidConfig, StepTypeMonitor))
		}

		report, err := poller.Poll(ctx, target)
		switch {
		case err == nil:
			return pipeline.Success(report)
		case errors.Is(err, monitor.ErrTimeout) && acceptTimeout:
			telemetry.FromContext(ctx).Warn("monitor timed out, accepting", "target", target, "attempts", report.Attempts)
			return pipeline.Success(report)
		case report.Outcome == monitor.OutcomeCancelled:
			return pipeline.Failure(fmt.Errorf("%w: %w", ErrStepCancelled, err))
		default:
			return pipeline.Failure(err)
		}
	}), nil
}

// lastStatus — последний известный статус задачи target из результатов run.
// Результаты просматриваются от последнего записанного к первому;
// отчёт monitor приоритетнее ответа на Start.
func lastStatus(rc *pipeline.RunContext, target string) (domain.Task, bool) {
	var (
		fromStart domain.Task
		found     bool
	)

	order := rc.StepOrder()
	for i := len(order) - 1; i >= 0; i-- {
		v, _ := rc.Result(order[i])
		switch res := v.(type) {
		case monitor.Report:
			if res.Task.Ref == target {
				return res.Task, true
			}
		case MigrateResult:
			if !found && res.Handle.Ref == target {
				fromStart = domain.Task{Ref: res.Handle.Ref, Status: res.Handle.Status}
				found = true
			}
		}
	}
	return fromStart, found
}
