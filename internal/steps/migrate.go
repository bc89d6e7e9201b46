package steps

import (
	"context"
	"fmt"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/backend"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/pipeline"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/telemetry"
)

// StepTypeMigrate — запуск задачи репликации.
const StepTypeMigrate = "migrate"

// MigrateKind запускает задачу репликации.
//
// Если backend отвечает INVALID_STATE, задача проверяется через Describe:
// starting/running считаются успехом (задача уже идёт).
//
// Конфигурация:
//
//	{
//	    "target": "task-1",          // иначе входной параметр target
//	    "accept_running": true       // по умолчанию true
//	}
type MigrateKind struct{}

// MigrateResult — результат migrate.
type MigrateResult struct {
	Handle         backend.Handle `json:"handle"`
	AlreadyRunning bool           `json:"already_running"`
}

// NewMigrateKind создаёт MigrateKind.
func NewMigrateKind() *MigrateKind {
	return &MigrateKind{}
}

// Type возвращает тип шага.
func (k *MigrateKind) Type() string {
	return StepTypeMigrate
}

// Build создаёт action.
func (k *MigrateKind) Build(def Definition, deps Deps) (pipeline.Action, error) {
	if err := deps.requireBackend(StepTypeMigrate); err != nil {
		return nil, err
	}
	acceptRunning := GetConfigBool(def.Config, "accept_running", true)

	return pipeline.ActionFunc(func(ctx context.Context, rc *pipeline.RunContext) pipeline.Outcome {
		target := resolveTarget(def.Config, rc)
		if target == "" {
			return pipeline.Failure(fmt.Errorf("%w: %s: target is required", ErrInvalidConfig, StepTypeMigrate))
		}
		logger := telemetry.WithTarget(telemetry.FromContext(ctx), target)

		h, err := deps.Backend.Start(ctx, target)
		if err == nil {
			logger.Info("replication task start requested", "status", h.Status)
			return pipeline.Success(MigrateResult{Handle: h})
		}
		if !acceptRunning || !backend.IsInvalidState(err) {
			return pipeline.Failure(err)
		}

		logger.Warn("start rejected, checking task status", "error", err)
		task, descErr := deps.Backend.Describe(ctx, target)
		if descErr != nil {
			return pipeline.Failure(fmt.Errorf("%w (status check: %v)", err, descErr))
		}
		if task.Status != domain.TaskStatusRunning && task.Status != domain.TaskStatusStarting {
			return pipeline.Failure(err)
		}

		logger.Info("replication task already running", "status", task.Status)
		res := MigrateResult{
			Handle:         backend.Handle{Ref: target, Status: task.Status},
			AlreadyRunning: true,
		}
		if task.StartedAt != nil {
			res.Handle.StartedAt = *task.StartedAt
		}
		return pipeline.Success(res)
	}), nil
}
