package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
)

// Статусы run для Result.Status.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Step — именованный шаг pipeline.
type Step struct {
	Name     string
	Action   Action
	Required bool
}

// Required создаёт обязательный шаг.
func Required(name string, action Action) Step {
	return Step{Name: name, Action: action, Required: true}
}

// Optional создаёт опциональный шаг.
func Optional(name string, action Action) Step {
	return Step{Name: name, Action: action}
}

// StepOutcome — запись о выполнении шага.
//
// Для успешного шага заполнен Result, для неуспешного — Error.
// После добавления в Result не изменяется.
type StepOutcome struct {
	Name           string    `json:"name"`
	Required       bool      `json:"required"`
	Success        bool      `json:"success"`
	Attempts       int       `json:"attempts"`
	Retried        bool      `json:"retried"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	DurationMillis int64     `json:"duration_ms"`
	Result         any       `json:"result,omitempty"`
	Error          string    `json:"error,omitempty"`

	err error
}

// Err возвращает *StepError для неуспешного шага.
func (o StepOutcome) Err() error {
	return o.err
}

// Duration возвращает длительность шага.
func (o StepOutcome) Duration() time.Duration {
	return time.Duration(o.DurationMillis) * time.Millisecond
}

// Result — итог одного run (PipelineResult).
type Result struct {
	ExecutionID         uuid.UUID     `json:"execution_id"`
	Success             bool          `json:"success"`
	Cancelled           bool          `json:"cancelled"`
	Steps               []StepOutcome `json:"steps"`
	Errors              []string      `json:"errors"`
	Warnings            []string      `json:"warnings"`
	StartedAt           time.Time     `json:"started_at"`
	FinishedAt          time.Time     `json:"finished_at"`
	TotalDurationMillis int64         `json:"total_duration_ms"`
}

// Step возвращает запись о шаге по имени.
func (r *Result) Step(name string) (StepOutcome, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepOutcome{}, false
}

// StepNames возвращает имена выполненных шагов по порядку.
func (r *Result) StepNames() []string {
	names := make([]string, len(r.Steps))
	for i, s := range r.Steps {
		names[i] = s.Name
	}
	return names
}

// Status возвращает succeeded, failed или cancelled.
func (r *Result) Status() string {
	switch {
	case r.Cancelled:
		return StatusCancelled
	case r.Success:
		return StatusSucceeded
	default:
		return StatusFailed
	}
}

// TotalDuration возвращает длительность run.
func (r *Result) TotalDuration() time.Duration {
	return time.Duration(r.TotalDurationMillis) * time.Millisecond
}

// Record превращает Result в запись истории.
func (r *Result) Record(pipelineName, target string) *domain.Run {
	steps := make([]domain.RunStep, len(r.Steps))
	for i, s := range r.Steps {
		steps[i] = domain.RunStep{
			Name:           s.Name,
			Required:       s.Required,
			Success:        s.Success,
			Attempts:       s.Attempts,
			DurationMillis: s.DurationMillis,
			Error:          s.Error,
		}
	}

	return &domain.Run{
		ID:             r.ExecutionID,
		Pipeline:       pipelineName,
		Target:         target,
		Status:         domain.RunStatus(r.Status()),
		Steps:          steps,
		Errors:         append([]string(nil), r.Errors...),
		Warnings:       append([]string(nil), r.Warnings...),
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		DurationMillis: r.TotalDurationMillis,
	}
}
