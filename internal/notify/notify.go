// Package notify — доставка уведомлений о ходе pipeline.
//
// Notifier — внешний коллаборатор orchestrator: ошибка доставки
// логируется и никогда не превращается в ошибку pipeline.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// События, которые отправляет orchestrator и шаги.
const (
	EventStepFailed        = "pipeline.step_failed"
	EventPipelineCompleted = "pipeline.completed"
	EventPipelineFailed    = "pipeline.failed"
	EventMigrationStatus   = "migration.status"
)

// Severity — важность уведомления.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Message — уведомление.
type Message struct {
	Event       string         `json:"event"`
	Severity    Severity       `json:"severity"`
	Subject     string         `json:"subject"`
	Body        string         `json:"body,omitempty"`
	ExecutionID string         `json:"execution_id,omitempty"`
	Step        string         `json:"step,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Notifier доставляет уведомления.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// ErrUnavailable — канал доставки не настроен или недоступен.
var ErrUnavailable = errors.New("notifier unavailable")

// NotifyError — ошибка доставки через конкретный канал.
type NotifyError struct {
	Channel string
	Err     error
}

// Error реализует интерфейс error.
func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify via %s: %v", e.Channel, e.Err)
}

// Unwrap возвращает исходную ошибку.
func (e *NotifyError) Unwrap() error {
	return e.Err
}

// Multi рассылает уведомление во все каналы.
// Ошибки каналов объединяются; частичная доставка не прерывает рассылку.
type Multi struct {
	notifiers []Notifier
}

// NewMulti создаёт Multi, пропуская nil notifiers.
func NewMulti(notifiers ...Notifier) *Multi {
	m := &Multi{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Send отправляет уведомление во все каналы.
func (m *Multi) Send(ctx context.Context, msg Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len возвращает количество каналов.
func (m *Multi) Len() int {
	return len(m.notifiers)
}

// Func — адаптер функции к Notifier.
type Func func(ctx context.Context, msg Message) error

// Send вызывает f.
func (f Func) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
