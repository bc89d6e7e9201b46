package pipeline

import (
	"errors"
	"fmt"
)

// Ошибки pipeline.
var (
	// ErrInvalidConfig — некорректный список шагов (ConfigurationError).
	ErrInvalidConfig = errors.New("invalid pipeline configuration")

	// ErrContextConflict — RunContext уже привязан к другому run.
	ErrContextConflict = errors.New("run context already bound to another run")

	// ErrResultExists — результат шага уже записан в RunContext.
	ErrResultExists = errors.New("step result already stored")

	// ErrCancelled — run отменён через context.
	ErrCancelled = errors.New("pipeline cancelled")

	// ErrStepPanic — action шага запаниковал.
	ErrStepPanic = errors.New("step panicked")

	// ErrNoFailureReason — Failure создан без ошибки.
	ErrNoFailureReason = errors.New("step failed without reason")
)

// StepError — ошибка выполнения шага (StepFailure).
//
// Никогда не возвращается из Run: хранится в StepOutcome.
type StepError struct {
	Step    string
	Attempt int
	Err     error
}

// Error реализует интерфейс error.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s (attempt %d): %v", e.Step, e.Attempt, e.Err)
}

// Unwrap возвращает исходную ошибку action.
func (e *StepError) Unwrap() error {
	return e.Err
}
