package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "migrator.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Mode != ModeOrchestrator {
		t.Errorf("expected orchestrator mode, got %s", cfg.Mode)
	}
	if cfg.Pipeline.RetryBackoff != 5*time.Minute {
		t.Errorf("expected 5m backoff, got %v", cfg.Pipeline.RetryBackoff)
	}
	if cfg.Monitor.Interval != 30*time.Second || cfg.Monitor.MaxWait != 5*time.Minute {
		t.Errorf("unexpected monitor config %+v", cfg.Monitor)
	}
	if len(cfg.Pipeline.Steps) != 4 {
		t.Errorf("expected default 4 steps, got %d", len(cfg.Pipeline.Steps))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must be valid: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
mode: direct
simulate: false
target: task-42
backend:
  kind: http
  url: http://control:8080
monitor:
  interval: 10s
  max_wait: 1m
pipeline:
  retry_backoff: 30s
  steps:
    - name: validate
      required: true
    - name: pause
      type: delay
      config:
        duration: 5s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Mode != ModeDirect || cfg.Simulate || cfg.Target != "task-42" {
		t.Errorf("unexpected top-level fields %+v", cfg)
	}
	if cfg.BackendKind() != BackendHTTP || cfg.Backend.URL != "http://control:8080" {
		t.Errorf("unexpected backend %+v", cfg.Backend)
	}
	if cfg.Monitor.Interval != 10*time.Second || cfg.Monitor.MaxWait != time.Minute {
		t.Errorf("unexpected monitor %+v", cfg.Monitor)
	}
	if cfg.Pipeline.RetryBackoff != 30*time.Second {
		t.Errorf("unexpected backoff %v", cfg.Pipeline.RetryBackoff)
	}
	if len(cfg.Pipeline.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(cfg.Pipeline.Steps))
	}
	pause := cfg.Pipeline.Steps[1]
	if pause.Type != "delay" || pause.Required || pause.Config["duration"] != "5s" {
		t.Errorf("unexpected step %+v", pause)
	}
	// Значения, не заданные в файле, остаются по умолчанию.
	if cfg.Output != FormatTable {
		t.Errorf("expected default output, got %s", cfg.Output)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("MIGRATOR_TARGET", "env-task")
	t.Setenv("MIGRATOR_SIMULATE", "false")
	t.Setenv("MIGRATOR_BACKEND", "postgres")
	t.Setenv("DB_URL", "postgres://localhost/migrator")
	t.Setenv("MIGRATOR_RETRY_BACKOFF", "1s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Target != "env-task" || cfg.Simulate {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.BackendKind() != BackendPostgres || cfg.Database.URL == "" {
		t.Errorf("unexpected backend: %s / %s", cfg.BackendKind(), cfg.Database.URL)
	}
	if cfg.Pipeline.RetryBackoff != time.Second {
		t.Errorf("expected 1s backoff, got %v", cfg.Pipeline.RetryBackoff)
	}
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("MIGRATOR_POLL_INTERVAL", "often")

	_, err := Load("")
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Mode = "manual" }},
		{"bad output", func(c *Config) { c.Output = "xml" }},
		{"http without url", func(c *Config) { c.Simulate = false; c.Backend.Kind = BackendHTTP }},
		{"postgres without dsn", func(c *Config) { c.Simulate = false; c.Backend.Kind = BackendPostgres }},
		{"unknown backend", func(c *Config) { c.Simulate = false; c.Backend.Kind = "ftp" }},
		{"history without dsn", func(c *Config) { c.Database.History = true }},
		{"no steps", func(c *Config) { c.Pipeline.Steps = nil }},
		{"unnamed step", func(c *Config) { c.Pipeline.Steps[0].Name = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestValidate_DirectModeWithoutSteps(t *testing.T) {
	cfg := Default()
	cfg.Mode = ModeDirect
	cfg.Pipeline.Steps = nil
	if err := cfg.Validate(); err != nil {
		t.Errorf("direct mode does not need steps: %v", err)
	}
}

func TestRequireTarget(t *testing.T) {
	cfg := Default()
	if err := cfg.RequireTarget(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
	cfg.Target = "t"
	if err := cfg.RequireTarget(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
