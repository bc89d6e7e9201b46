package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/notify"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/pipeline"
)

// StepTypeNotify — отправка сводки о миграции.
const StepTypeNotify = "notify"

// NotifyKind отправляет сводку по результатам предыдущих шагов.
//
// Конфигурация:
//
//	{
//	    "subject": "DMS migration status"   // тема уведомления
//	}
type NotifyKind struct{}

// NotifyResult — результат notify.
type NotifyResult struct {
	Event   string `json:"event"`
	Subject string `json:"subject"`
}

// NewNotifyKind создаёт NotifyKind.
func NewNotifyKind() *NotifyKind {
	return &NotifyKind{}
}

// Type возвращает тип шага.
func (k *NotifyKind) Type() string {
	return StepTypeNotify
}

// Build создаёт action.
func (k *NotifyKind) Build(def Definition, deps Deps) (pipeline.Action, error) {
	if deps.Notifier == nil {
		return nil, fmt.Errorf("%w: %s: notifier", ErrMissingDependency, StepTypeNotify)
	}
	subject := GetConfigString(def.Config, "subject")
	if subject == "" {
		subject = "migration status"
	}

	return pipeline.ActionFunc(func(ctx context.Context, rc *pipeline.RunContext) pipeline.Outcome {
		target := resolveTarget(def.Config, rc)
		names := rc.StepOrder()

		fields := map[string]any{
			"target":          target,
			"completed_steps": names,
		}
		body := fmt.Sprintf("target %s: steps completed: %s", target, strings.Join(names, ", "))
		if task, ok := lastStatus(rc, target); ok {
			fields["status"] = task.Status
			fields["progress_percent"] = task.ProgressPercent
			body += fmt.Sprintf("; task status %s (%d%%)", task.Status, task.ProgressPercent)
		}

		msg := notify.Message{
			Event:       notify.EventMigrationStatus,
			Severity:    notify.SeverityInfo,
			Subject:     subject,
			Body:        body,
			ExecutionID: rc.ExecutionID(),
			Step:        def.Name,
			Fields:      fields,
		}
		if err := deps.Notifier.Send(ctx, msg); err != nil {
			return pipeline.Failure(err)
		}
		return pipeline.Success(NotifyResult{Event: msg.Event, Subject: subject})
	}), nil
}
