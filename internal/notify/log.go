package notify

import (
	"context"
	"log/slog"
)

// Log пишет уведомления в structured log. Никогда не возвращает ошибку.
type Log struct {
	logger *slog.Logger
}

// NewLog создаёт Log notifier.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Send логирует уведомление с уровнем по Severity.
func (l *Log) Send(ctx context.Context, msg Message) error {
	level := slog.LevelInfo
	switch msg.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}

	attrs := []any{
		"event", msg.Event,
		"subject", msg.Subject,
	}
	if msg.ExecutionID != "" {
		attrs = append(attrs, "execution_id", msg.ExecutionID)
	}
	if msg.Step != "" {
		attrs = append(attrs, "step", msg.Step)
	}
	if msg.Body != "" {
		attrs = append(attrs, "body", msg.Body)
	}

	l.logger.Log(ctx, level, "notification", attrs...)
	return nil
}
