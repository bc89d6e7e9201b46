package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
)

const taskColumns = `ref, status, progress_percent, started_at, updated_at, error`

// TaskRepo — репозиторий задач репликации (таблица replication_tasks).
type TaskRepo struct {
	pool *pgxpool.Pool
}

// NewTaskRepo создаёт новый TaskRepo.
func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

// Register создаёт задачу в статусе pending, если её ещё нет.
func (r *TaskRepo) Register(ctx context.Context, ref string) (*domain.Task, error) {
	query := `
		INSERT INTO replication_tasks (ref, status)
		VALUES ($1, $2)
		ON CONFLICT (ref) DO UPDATE SET ref = EXCLUDED.ref
		RETURNING ` + taskColumns
	return scanTask(r.pool.QueryRow(ctx, query, ref, domain.TaskStatusPending))
}

// Get возвращает задачу по ref.
func (r *TaskRepo) Get(ctx context.Context, ref string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM replication_tasks WHERE ref = $1`
	return scanTask(r.pool.QueryRow(ctx, query, ref))
}

// List возвращает задачи, отсортированные по ref.
func (r *TaskRepo) List(ctx context.Context) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM replication_tasks ORDER BY ref`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// RequestStart атомарно переводит задачу в starting.
//
// ErrNotFound — задачи нет; ErrInvalidState — статус не допускает запуск.
func (r *TaskRepo) RequestStart(ctx context.Context, ref string) (*domain.Task, error) {
	startable := make([]string, 0, 4)
	for _, s := range domain.StartableStatuses() {
		startable = append(startable, string(s))
	}

	query := `
		UPDATE replication_tasks
		SET status = $2, progress_percent = 0, started_at = now(), updated_at = now(), error = NULL
		WHERE ref = $1 AND status = ANY($3)
		RETURNING ` + taskColumns
	task, err := scanTask(r.pool.QueryRow(ctx, query, ref, domain.TaskStatusStarting, startable))
	if !errors.Is(err, ErrNotFound) {
		return task, err
	}

	current, getErr := r.Get(ctx, ref)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("%w: task %s is %s", ErrInvalidState, ref, current.Status)
}

// UpdateProgress записывает статус и прогресс, сообщённые агентом репликации.
func (r *TaskRepo) UpdateProgress(ctx context.Context, ref string, status domain.TaskStatus, percent int, taskErr string) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidState, status)
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE replication_tasks
		SET status = $2, progress_percent = $3, error = $4, updated_at = now()
		WHERE ref = $1
	`, ref, status, domain.ClampPercent(percent), nullString(taskErr))
	if err != nil {
		return fmt.Errorf("update task progress: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTask(row scanner) (*domain.Task, error) {
	var task domain.Task
	var status string
	var taskError *string

	err := row.Scan(
		&task.Ref,
		&status,
		&task.ProgressPercent,
		&task.StartedAt,
		&task.UpdatedAt,
		&taskError,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}

	task.Status = domain.ParseTaskStatus(status)
	if taskError != nil {
		task.Error = *taskError
	}
	return &task, nil
}
