package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
)

// Backend — migration backend.
type Backend interface {
	// Start запрашивает запуск задачи.
	Start(ctx context.Context, ref string) (Handle, error)

	// Describe возвращает текущее состояние задачи.
	Describe(ctx context.Context, ref string) (domain.Task, error)
}

// Handle — подтверждение запуска задачи.
type Handle struct {
	Ref       string            `json:"ref"`
	Status    domain.TaskStatus `json:"status"`
	StartedAt time.Time         `json:"started_at"`
}

// Коды ошибок backend.
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidState = "INVALID_STATE"
	CodeUnavailable  = "UNAVAILABLE"
	CodeInternal     = "INTERNAL_ERROR"
)

// ErrEmptyRef — пустой идентификатор задачи.
var ErrEmptyRef = errors.New("empty task ref")

// BackendError — ошибка backend с сохранёнными кодом и сообщением.
type BackendError struct {
	// Op — операция: start или describe.
	Op      string
	Code    string
	Message string

	// Err — транспортная причина (может быть nil).
	Err error
}

// Error реализует интерфейс error.
func (e *BackendError) Error() string {
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
}

// Unwrap возвращает транспортную причину.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// Code возвращает код BackendError из цепочки ошибок или "".
func Code(err error) string {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// IsInvalidState — задача в состоянии, не допускающем операцию.
func IsInvalidState(err error) bool {
	return Code(err) == CodeInvalidState
}

// IsNotFound — задача не найдена.
func IsNotFound(err error) bool {
	return Code(err) == CodeNotFound
}

func checkRef(op, ref string) error {
	if ref == "" {
		return &BackendError{Op: op, Code: CodeBadRequest, Err: ErrEmptyRef}
	}
	return nil
}
