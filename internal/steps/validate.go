package steps

import (
	"context"
	"fmt"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/pipeline"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/telemetry"
)

// StepTypeValidate — проверка перед миграцией.
const StepTypeValidate = "validate"

// ValidateKind — проверка перед миграцией.
//
// Проверяет наличие target и обязательных входных параметров, затем
// (кроме режима simulate) делает Describe задачи как проверку связи
// с backend.
//
// Конфигурация:
//
//	{
//	    "target": "task-1",             // иначе входной параметр target
//	    "require_inputs": ["source"],   // обязательные входные параметры
//	    "probe": true                   // Describe задачи (по умолчанию true)
//	}
type ValidateKind struct{}

// ValidateResult — результат validate.
type ValidateResult struct {
	Target string            `json:"target"`
	Probed bool              `json:"probed"`
	Status domain.TaskStatus `json:"status,omitempty"`
}

// NewValidateKind создаёт ValidateKind.
func NewValidateKind() *ValidateKind {
	return &ValidateKind{}
}

// Type возвращает тип шага.
func (k *ValidateKind) Type() string {
	return StepTypeValidate
}

// Build создаёт action.
func (k *ValidateKind) Build(def Definition, deps Deps) (pipeline.Action, error) {
	probe := GetConfigBool(def.Config, "probe", true) && !deps.Simulate
	if probe {
		if err := deps.requireBackend(StepTypeValidate); err != nil {
			return nil, err
		}
	}
	required := GetConfigStrings(def.Config, "require_inputs")

	return pipeline.ActionFunc(func(ctx context.Context, rc *pipeline.RunContext) pipeline.Outcome {
		target := resolveTarget(def.Config, rc)
		if target == "" {
			return pipeline.Failure(fmt.Errorf("%w: target is required", ErrValidation))
		}
		for _, key := range required {
			if v, ok := rc.Input(key); !ok || v == nil || v == "" {
				return pipeline.Failure(fmt.Errorf("%w: input %q is required", ErrValidation, key))
			}
		}

		res := ValidateResult{Target: target}
		if !probe {
			return pipeline.Success(res)
		}

		task, err := deps.Backend.Describe(ctx, target)
		if err != nil {
			return pipeline.Failure(fmt.Errorf("%w: backend probe: %w", ErrValidation, err))
		}
		res.Probed = true
		res.Status = task.Status

		telemetry.FromContext(ctx).Info("validation passed", "target", target, "status", task.Status)
		return pipeline.Success(res)
	}), nil
}
