package domain

import (
	"slices"
	"strings"
)

// TaskStatus — статус задачи репликации на стороне migration backend.
//
// Жизненный цикл:
//
//	PENDING → STARTING → RUNNING → COMPLETED
//	                   ↘ FAILED
//	          (или) → STOPPED (из STARTING или RUNNING)
type TaskStatus string

const (
	// TaskStatusPending — задача создана, но ещё не запускалась.
	TaskStatusPending TaskStatus = "pending"

	// TaskStatusStarting — запуск запрошен, backend готовит репликацию.
	TaskStatusStarting TaskStatus = "starting"

	// TaskStatusRunning — репликация идёт.
	TaskStatusRunning TaskStatus = "running"

	// TaskStatusFailed — задача упала.
	TaskStatusFailed TaskStatus = "failed"

	// TaskStatusStopped — задача остановлена.
	TaskStatusStopped TaskStatus = "stopped"

	// TaskStatusCompleted — полная загрузка завершена.
	TaskStatusCompleted TaskStatus = "completed"
)

// IsSuccess возвращает true для статусов, которые monitor считает успешным финалом.
func (s TaskStatus) IsSuccess() bool {
	return s == TaskStatusRunning || s == TaskStatusCompleted
}

// IsFailure возвращает true для статусов финальной ошибки.
func (s TaskStatus) IsFailure() bool {
	return s == TaskStatusFailed || s == TaskStatusStopped
}

// IsTerminal возвращает true, если дальнейший polling не изменит результат.
func (s TaskStatus) IsTerminal() bool {
	return s.IsSuccess() || s.IsFailure()
}

// CanStart проверяет, можно ли запустить задачу из текущего статуса.
func (s TaskStatus) CanStart() bool {
	return slices.Contains(StartableStatuses(), s)
}

// IsValid проверяет, что статус из известного набора.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusStarting, TaskStatusRunning,
		TaskStatusFailed, TaskStatusStopped, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление TaskStatus.
func (s TaskStatus) String() string {
	return string(s)
}

// ParseTaskStatus парсит строку в TaskStatus (без учёта регистра).
// Неизвестные значения отображаются в pending.
func ParseTaskStatus(s string) TaskStatus {
	status := TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return TaskStatusPending
	}
	return status
}

// StartableStatuses возвращает статусы, из которых разрешён Start.
func StartableStatuses() []TaskStatus {
	return []TaskStatus{TaskStatusPending, TaskStatusStopped, TaskStatusFailed, TaskStatusCompleted}
}
