package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
)

// scripted возвращает статусы по порядку; ошибка, если элемент пустой.
type scripted struct {
	statuses []domain.TaskStatus
	calls    int
}

func (s *scripted) Describe(_ context.Context, ref string) (domain.Task, error) {
	i := min(s.calls, len(s.statuses)-1)
	s.calls++
	if s.statuses[i] == "" {
		return domain.Task{}, errors.New("throttled")
	}
	return domain.Task{Ref: ref, Status: s.statuses[i]}, nil
}

func newPoller(b Describer, cfg Config) (*Poller, *[]time.Duration) {
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	p := New(b, cfg)
	var waits []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return p, &waits
}

func TestAttempts(t *testing.T) {
	tests := []struct {
		interval, maxWait time.Duration
		override          int
		want              int
	}{
		{30 * time.Second, 5 * time.Minute, 0, 10},
		{30 * time.Second, 10 * time.Second, 0, 1},
		{time.Minute, 5 * time.Minute, 3, 3},
		{0, time.Minute, 0, 1},
	}

	for _, tt := range tests {
		if got := Attempts(tt.interval, tt.maxWait, tt.override); got != tt.want {
			t.Errorf("Attempts(%v, %v, %d) = %d, want %d", tt.interval, tt.maxWait, tt.override, got, tt.want)
		}
	}
}

func TestPoll_RunningOnThirdAttempt(t *testing.T) {
	b := &scripted{statuses: []domain.TaskStatus{
		domain.TaskStatusStarting,
		domain.TaskStatusStarting,
		domain.TaskStatusRunning,
	}}
	p, waits := newPoller(b, Config{Interval: 30 * time.Second, MaxWait: 5 * time.Minute})

	if p.TotalAttempts() != 10 {
		t.Fatalf("expected 10 attempts, got %d", p.TotalAttempts())
	}

	rep, err := p.Poll(context.Background(), "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Outcome != OutcomeRunning || !rep.Succeeded() {
		t.Errorf("expected running, got %s", rep.Outcome)
	}
	if rep.Attempts != 3 || b.calls != 3 {
		t.Errorf("expected stop after 3 attempts, got %d (calls %d)", rep.Attempts, b.calls)
	}
	if len(*waits) != 2 {
		t.Errorf("expected 2 waits, got %d", len(*waits))
	}
}

func TestPoll_Failed(t *testing.T) {
	b := &scripted{statuses: []domain.TaskStatus{domain.TaskStatusStarting, domain.TaskStatusStopped}}
	p, _ := newPoller(b, Config{MaxAttempts: 5})

	rep, err := p.Poll(context.Background(), "t")
	if !errors.Is(err, ErrTaskFailed) {
		t.Errorf("expected ErrTaskFailed, got %v", err)
	}
	if rep.Outcome != OutcomeFailed || rep.Attempts != 2 {
		t.Errorf("unexpected report %+v", rep)
	}
}

func TestPoll_TimeoutNoTrailingWait(t *testing.T) {
	b := &scripted{statuses: []domain.TaskStatus{domain.TaskStatusStarting}}
	p, waits := newPoller(b, Config{MaxAttempts: 4})

	rep, err := p.Poll(context.Background(), "t")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	if errors.Is(err, ErrTaskFailed) {
		t.Error("timeout must be distinct from failure")
	}
	if rep.Outcome != OutcomeTimeout || rep.Attempts != 4 {
		t.Errorf("unexpected report %+v", rep)
	}
	if len(*waits) != 3 {
		t.Errorf("expected 3 waits for 4 attempts, got %d", len(*waits))
	}
}

func TestPoll_DescribeErrorConsumesAttempt(t *testing.T) {
	b := &scripted{statuses: []domain.TaskStatus{"", "", domain.TaskStatusRunning}}
	var reported []error
	p, _ := newPoller(b, Config{
		MaxAttempts: 3,
		OnProgress: func(attempt, total int, task domain.Task, err error) {
			reported = append(reported, err)
		},
	})

	rep, err := p.Poll(context.Background(), "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", rep.Attempts)
	}
	if len(reported) != 3 || reported[0] == nil || reported[2] != nil {
		t.Errorf("unexpected progress reports %v", reported)
	}
}

func TestPoll_DescribeErrorsUntilTimeout(t *testing.T) {
	b := &scripted{statuses: []domain.TaskStatus{""}}
	p, _ := newPoller(b, Config{MaxAttempts: 2})

	rep, err := p.Poll(context.Background(), "t")
	if !errors.Is(err, ErrTimeout) || rep.Outcome != OutcomeTimeout {
		t.Errorf("expected timeout, got %s / %v", rep.Outcome, err)
	}
}

func TestPoll_Cancelled(t *testing.T) {
	b := &scripted{statuses: []domain.TaskStatus{domain.TaskStatusStarting}}
	p := New(b, Config{
		Interval:    time.Hour,
		MaxAttempts: 3,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	rep, err := p.Poll(ctx, "t")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if rep.Outcome != OutcomeCancelled || rep.Attempts != 1 {
		t.Errorf("unexpected report %+v", rep)
	}
}
