package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema — таблицы migrator. Идемпотентно.
const schema = `
CREATE TABLE IF NOT EXISTS replication_tasks (
	ref              TEXT PRIMARY KEY,
	status           TEXT NOT NULL DEFAULT 'pending',
	progress_percent INTEGER NOT NULL DEFAULT 0 CHECK (progress_percent BETWEEN 0 AND 100),
	started_at       TIMESTAMPTZ,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	error            TEXT
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	id          UUID PRIMARY KEY,
	pipeline    TEXT NOT NULL,
	target      TEXT NOT NULL,
	status      TEXT NOT NULL,
	steps       JSONB NOT NULL DEFAULT '[]',
	errors      JSONB NOT NULL DEFAULT '[]',
	warnings    JSONB NOT NULL DEFAULT '[]',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS pipeline_runs_started_at_idx ON pipeline_runs (started_at DESC);
CREATE INDEX IF NOT EXISTS pipeline_runs_target_idx ON pipeline_runs (target);
`

// EnsureSchema создаёт таблицы, если их нет.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// scanner — общий интерфейс pgx.Row и pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
