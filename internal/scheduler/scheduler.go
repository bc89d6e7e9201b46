package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNoRunFunc — не задана функция запуска.
var ErrNoRunFunc = errors.New("scheduler: run func is required")

// RunFunc запускает один run pipeline.
type RunFunc func(ctx context.Context) error

// Config — конфигурация Scheduler.
type Config struct {
	// Expr — cron выражение.
	Expr     string
	Timezone string

	Run    RunFunc
	Logger *slog.Logger

	// MaxRuns — остановиться после N запусков; 0 — без ограничения.
	MaxRuns int
}

// Scheduler запускает RunFunc по cron расписанию.
//
// Запуски не перекрываются: следующее время вычисляется после
// завершения текущего run, пропущенные слоты не догоняются.
type Scheduler struct {
	expr     string
	timezone string
	run      RunFunc
	logger   *slog.Logger
	maxRuns  int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New проверяет выражение и создаёт Scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Run == nil {
		return nil, ErrNoRunFunc
	}
	if err := ValidateCronExpr(cfg.Expr); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Scheduler{
		expr:     cfg.Expr,
		timezone: cfg.Timezone,
		run:      cfg.Run,
		logger:   cfg.Logger,
		maxRuns:  cfg.MaxRuns,
		now:      time.Now,
		sleep:    sleepCtx,
	}, nil
}

// Start блокируется до отмены ctx или исчерпания MaxRuns.
//
// Ошибки run логируются и не останавливают расписание.
// Возвращает nil при штатном завершении, ошибку ctx при отмене.
func (s *Scheduler) Start(ctx context.Context) error {
	runs := 0
	for s.maxRuns == 0 || runs < s.maxRuns {
		now := s.now()
		next, err := NextDue(s.expr, s.timezone, now)
		if err != nil {
			return err
		}

		s.logger.Info("next scheduled run", "at", next, "cron", s.expr)
		if err := s.sleep(ctx, next.Sub(now)); err != nil {
			return err
		}

		runs++
		if err := s.run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("scheduled run failed", "run", runs, "error", err)
			continue
		}
		s.logger.Info("scheduled run completed", "run", runs)
	}
	return nil
}

// Tick выполняет run немедленно, вне расписания.
func (s *Scheduler) Tick(ctx context.Context) error {
	if err := s.run(ctx); err != nil {
		return fmt.Errorf("scheduled run: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
