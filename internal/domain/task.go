package domain

import "time"

// Task — задача репликации, которой управляет migration backend.
//
// Ref — внешний идентификатор задачи (например ARN или имя),
// который передаётся в backend как есть.
type Task struct {
	// Ref — идентификатор задачи на стороне backend.
	Ref string `json:"ref"`

	// Status — текущий статус.
	Status TaskStatus `json:"status"`

	// ProgressPercent — прогресс полной загрузки, 0..100.
	ProgressPercent int `json:"progress_percent"`

	// StartedAt — время последнего запуска.
	// Nil, если задача ещё не запускалась.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// UpdatedAt — время последнего изменения статуса.
	UpdatedAt time.Time `json:"updated_at"`

	// Error — последнее сообщение об ошибке от backend.
	Error string `json:"error,omitempty"`
}

// MarkStarting переводит задачу в STARTING и сбрасывает прогресс.
func (t *Task) MarkStarting() {
	now := time.Now()
	t.Status = TaskStatusStarting
	t.ProgressPercent = 0
	t.StartedAt = &now
	t.UpdatedAt = now
	t.Error = ""
}

// SetProgress обновляет статус и прогресс.
// Прогресс ограничивается диапазоном 0..100.
func (t *Task) SetProgress(status TaskStatus, percent int) {
	t.Status = status
	t.ProgressPercent = ClampPercent(percent)
	t.UpdatedAt = time.Now()
}

// MarkFailed переводит задачу в FAILED с ошибкой.
func (t *Task) MarkFailed(err string) {
	t.Status = TaskStatusFailed
	t.Error = err
	t.UpdatedAt = time.Now()
}

// Elapsed возвращает время с последнего запуска.
func (t *Task) Elapsed() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return t.UpdatedAt.Sub(*t.StartedAt)
}

// ClampPercent ограничивает значение диапазоном 0..100.
func ClampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
