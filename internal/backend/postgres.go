package backend

import (
	"context"
	"errors"
	"time"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/repo"
)

// TaskStore — хранилище задач репликации (реализует repo.TaskRepo).
type TaskStore interface {
	Get(ctx context.Context, ref string) (*domain.Task, error)
	RequestStart(ctx context.Context, ref string) (*domain.Task, error)
}

// Postgres — backend поверх контрольной таблицы replication_tasks.
//
// Start переводит задачу в starting; дальше статус и прогресс
// обновляет внешний агент репликации.
type Postgres struct {
	store TaskStore
}

// NewPostgres создаёт Postgres backend.
func NewPostgres(store TaskStore) *Postgres {
	return &Postgres{store: store}
}

// Start запрашивает запуск задачи.
func (p *Postgres) Start(ctx context.Context, ref string) (Handle, error) {
	if err := checkRef("start", ref); err != nil {
		return Handle{}, err
	}

	task, err := p.store.RequestStart(ctx, ref)
	if err != nil {
		return Handle{}, storeError("start", err)
	}

	h := Handle{Ref: task.Ref, Status: task.Status, StartedAt: time.Now()}
	if task.StartedAt != nil {
		h.StartedAt = *task.StartedAt
	}
	return h, nil
}

// Describe читает задачу.
func (p *Postgres) Describe(ctx context.Context, ref string) (domain.Task, error) {
	if err := checkRef("describe", ref); err != nil {
		return domain.Task{}, err
	}

	task, err := p.store.Get(ctx, ref)
	if err != nil {
		return domain.Task{}, storeError("describe", err)
	}
	return *task, nil
}

func storeError(op string, err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return &BackendError{Op: op, Code: CodeNotFound, Message: err.Error(), Err: err}
	case errors.Is(err, repo.ErrInvalidState):
		return &BackendError{Op: op, Code: CodeInvalidState, Message: err.Error(), Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &BackendError{Op: op, Code: CodeUnavailable, Err: err}
	default:
		return &BackendError{Op: op, Code: CodeInternal, Err: err}
	}
}
