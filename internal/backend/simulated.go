package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
)

// SimulatedConfig — конфигурация Simulated.
type SimulatedConfig struct {
	// Transitions — статусы, которые возвращают последовательные Describe
	// после Start. Последний статус повторяется.
	// По умолчанию: starting, running.
	Transitions []domain.TaskStatus

	// ProgressStep — прирост прогресса за Describe в статусе running.
	// По умолчанию 25.
	ProgressStep int

	// FailStarts — сколько первых Start завершатся ошибкой UNAVAILABLE.
	FailStarts int

	// Latency — задержка каждой операции (прерывается ctx).
	Latency time.Duration
}

// Simulated — in-memory backend.
//
// Любой ref считается существующей задачей в статусе pending.
// Start задачи в статусе starting/running возвращает INVALID_STATE.
type Simulated struct {
	cfg SimulatedConfig

	mu     sync.Mutex
	tasks  map[string]*simTask
	starts int
}

type simTask struct {
	task     domain.Task
	describe int
}

// NewSimulated создаёт Simulated.
func NewSimulated(cfg SimulatedConfig) *Simulated {
	if len(cfg.Transitions) == 0 {
		cfg.Transitions = []domain.TaskStatus{domain.TaskStatusStarting, domain.TaskStatusRunning}
	}
	if cfg.ProgressStep <= 0 {
		cfg.ProgressStep = 25
	}

	return &Simulated{
		cfg:   cfg,
		tasks: make(map[string]*simTask),
	}
}

// Start запускает задачу.
func (s *Simulated) Start(ctx context.Context, ref string) (Handle, error) {
	if err := checkRef("start", ref); err != nil {
		return Handle{}, err
	}
	if err := s.wait(ctx); err != nil {
		return Handle{}, &BackendError{Op: "start", Code: CodeUnavailable, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.starts++
	if s.starts <= s.cfg.FailStarts {
		return Handle{}, &BackendError{
			Op:      "start",
			Code:    CodeUnavailable,
			Message: fmt.Sprintf("simulated start failure %d of %d", s.starts, s.cfg.FailStarts),
		}
	}

	t := s.lookup(ref)
	if !t.task.Status.CanStart() {
		return Handle{}, &BackendError{
			Op:      "start",
			Code:    CodeInvalidState,
			Message: fmt.Sprintf("task %s is %s", ref, t.task.Status),
		}
	}

	t.task.MarkStarting()
	t.describe = 0

	return Handle{Ref: ref, Status: t.task.Status, StartedAt: *t.task.StartedAt}, nil
}

// Describe возвращает следующий статус из Transitions.
func (s *Simulated) Describe(ctx context.Context, ref string) (domain.Task, error) {
	if err := checkRef("describe", ref); err != nil {
		return domain.Task{}, err
	}
	if err := s.wait(ctx); err != nil {
		return domain.Task{}, &BackendError{Op: "describe", Code: CodeUnavailable, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.lookup(ref)
	if t.task.StartedAt == nil {
		return t.task, nil
	}

	idx := min(t.describe, len(s.cfg.Transitions)-1)
	t.describe++

	status := s.cfg.Transitions[idx]
	progress := t.task.ProgressPercent
	switch status {
	case domain.TaskStatusRunning:
		progress += s.cfg.ProgressStep
	case domain.TaskStatusCompleted:
		progress = 100
	}
	t.task.SetProgress(status, progress)
	if status == domain.TaskStatusFailed {
		t.task.MarkFailed("simulated replication failure")
	}

	return t.task, nil
}

// SetStatus принудительно выставляет статус задачи.
func (s *Simulated) SetStatus(ref string, status domain.TaskStatus, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.lookup(ref)
	if t.task.StartedAt == nil && status != domain.TaskStatusPending {
		now := time.Now()
		t.task.StartedAt = &now
	}
	t.task.SetProgress(status, progress)
}

// Starts возвращает число вызовов Start.
func (s *Simulated) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

func (s *Simulated) lookup(ref string) *simTask {
	t, ok := s.tasks[ref]
	if !ok {
		t = &simTask{task: domain.Task{
			Ref:       ref,
			Status:    domain.TaskStatusPending,
			UpdatedAt: time.Now(),
		}}
		s.tasks[ref] = t
	}
	return t
}

func (s *Simulated) wait(ctx context.Context) error {
	if s.cfg.Latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(s.cfg.Latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
