package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/backend"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/repo"
)

// TaskAdmin — регистрация задач и приём прогресса от агента репликации.
// Реализуется repo.TaskRepo.
type TaskAdmin interface {
	Register(ctx context.Context, ref string) (*domain.Task, error)
	List(ctx context.Context) ([]domain.Task, error)
	UpdateProgress(ctx context.Context, ref string, status domain.TaskStatus, percent int, taskErr string) error
}

// RunStore — история run. Реализуется repo.RunRepo.
type RunStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	List(ctx context.Context, filter repo.RunFilter) ([]domain.Run, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	backend backend.Backend
	tasks   TaskAdmin
	runs    RunStore
	logger  *slog.Logger
}

// Config — конфигурация для создания Handler.
//
// Tasks и Runs опциональны: без них соответствующие маршруты
// отвечают 501.
type Config struct {
	Backend backend.Backend
	Tasks   TaskAdmin
	Runs    RunStore
	Logger  *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		backend: cfg.Backend,
		tasks:   cfg.Tasks,
		runs:    cfg.Runs,
		logger:  cfg.Logger,
	}
}
