package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus — итоговый статус run pipeline.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// IsValid проверяет, что статус известен.
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// Run — запись истории выполнения pipeline.
//
// Создаётся после завершения run и больше не изменяется.
type Run struct {
	// ID — execution id run.
	ID uuid.UUID `json:"id"`

	// Pipeline — имя pipeline.
	Pipeline string `json:"pipeline"`

	// Target — ref задачи репликации, с которой работал run.
	Target string `json:"target"`

	// Status — итог выполнения.
	Status RunStatus `json:"status"`

	// Steps — выполненные шаги по порядку.
	Steps []RunStep `json:"steps"`

	// Errors — неразрешённые ошибки обязательных шагов.
	Errors []string `json:"errors"`

	// Warnings — ошибки опциональных шагов.
	Warnings []string `json:"warnings"`

	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	DurationMillis int64     `json:"duration_ms"`
}

// RunStep — шаг в истории run.
type RunStep struct {
	Name           string `json:"name"`
	Required       bool   `json:"required"`
	Success        bool   `json:"success"`
	Attempts       int    `json:"attempts"`
	DurationMillis int64  `json:"duration_ms"`
	Error          string `json:"error,omitempty"`
}

// Duration возвращает длительность run.
func (r *Run) Duration() time.Duration {
	return time.Duration(r.DurationMillis) * time.Millisecond
}

// Succeeded возвращает true для успешного run.
func (r *Run) Succeeded() bool {
	return r.Status == RunStatusSucceeded
}

// FailedSteps возвращает имена шагов, завершившихся ошибкой.
func (r *Run) FailedSteps() []string {
	var names []string
	for _, s := range r.Steps {
		if !s.Success {
			names = append(names, s.Name)
		}
	}
	return names
}
