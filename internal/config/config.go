// Package config загружает конфигурацию migrator.
//
// Порядок применения (каждый следующий переопределяет предыдущий):
//
//	Default() → YAML файл → переменные окружения → флаги CLI
//
// Проверяются только наличие и допустимые значения полей.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/steps"
)

// Режимы запуска.
const (
	// ModeOrchestrator — pipeline из шагов с retry.
	ModeOrchestrator = "orchestrator"

	// ModeDirect — только start + monitor, без pipeline.
	ModeDirect = "direct"
)

// Типы backend.
const (
	BackendSimulated = "simulated"
	BackendHTTP      = "http"
	BackendPostgres  = "postgres"
)

// Форматы вывода.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// ErrInvalid — конфигурация не прошла проверку.
var ErrInvalid = errors.New("invalid configuration")

// Config — конфигурация migrator.
type Config struct {
	Mode     string `yaml:"mode"`
	Simulate bool   `yaml:"simulate"`

	// Target — ref задачи репликации.
	Target string `yaml:"target"`
	Output string `yaml:"output"`

	// Schedule — cron выражение для периодических run (команда schedule).
	Schedule string `yaml:"schedule"`

	Pipeline PipelineConfig `yaml:"pipeline"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Backend  BackendConfig  `yaml:"backend"`
	Notify   NotifyConfig   `yaml:"notify"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
}

// PipelineConfig — pipeline и retry.
type PipelineConfig struct {
	Name         string             `yaml:"name"`
	RetryBackoff time.Duration      `yaml:"retry_backoff"`
	Steps        []steps.Definition `yaml:"steps"`
}

// MonitorConfig — параметры polling.
type MonitorConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxWait     time.Duration `yaml:"max_wait"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// BackendConfig — migration backend.
type BackendConfig struct {
	Kind    string        `yaml:"kind"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`

	// FailStarts — сколько первых Start провалит simulated backend.
	FailStarts int `yaml:"fail_starts"`
}

// NotifyConfig — каналы уведомлений. Log включён всегда.
type NotifyConfig struct {
	WebhookURL  string        `yaml:"webhook_url"`
	RabbitMQURL string        `yaml:"rabbitmq_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

// DatabaseConfig — Postgres для backend postgres и истории run.
type DatabaseConfig struct {
	URL     string `yaml:"url"`
	History bool   `yaml:"history"`
}

// ServerConfig — HTTP сервер control API и метрик.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	return Config{
		Mode:     ModeOrchestrator,
		Simulate: true,
		Output:   FormatTable,
		Pipeline: PipelineConfig{
			Name:         "migration",
			RetryBackoff: 5 * time.Minute,
			Steps:        steps.DefaultDefinitions(),
		},
		Monitor: MonitorConfig{
			Interval: 30 * time.Second,
			MaxWait:  5 * time.Minute,
		},
		Backend: BackendConfig{
			Kind:    BackendSimulated,
			Timeout: 30 * time.Second,
		},
		Notify: NotifyConfig{
			Timeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			MetricsAddr: ":9090",
		},
	}
}

// Load читает YAML файл (если path не пустой) и применяет окружение.
// Отсутствующий файл — ошибка только если путь задан явно.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Mode, "MIGRATOR_MODE")
	setString(&cfg.Target, "MIGRATOR_TARGET")
	setString(&cfg.Output, "MIGRATOR_OUTPUT")
	setString(&cfg.Schedule, "MIGRATOR_SCHEDULE")
	setString(&cfg.Backend.Kind, "MIGRATOR_BACKEND")
	setString(&cfg.Backend.URL, "MIGRATOR_BACKEND_URL")
	setString(&cfg.Notify.WebhookURL, "MIGRATOR_WEBHOOK_URL")
	setString(&cfg.Notify.RabbitMQURL, "RABBITMQ_URL")
	setString(&cfg.Database.URL, "DB_URL")
	setString(&cfg.Server.Addr, "MIGRATOR_ADDR")
	setString(&cfg.Server.MetricsAddr, "METRICS_ADDR")

	if err := setBool(&cfg.Simulate, "MIGRATOR_SIMULATE"); err != nil {
		return err
	}
	if err := setBool(&cfg.Database.History, "MIGRATOR_HISTORY"); err != nil {
		return err
	}

	durations := []struct {
		dst *time.Duration
		key string
	}{
		{&cfg.Pipeline.RetryBackoff, "MIGRATOR_RETRY_BACKOFF"},
		{&cfg.Monitor.Interval, "MIGRATOR_POLL_INTERVAL"},
		{&cfg.Monitor.MaxWait, "MIGRATOR_MAX_WAIT"},
	}
	for _, d := range durations {
		if err := setDuration(d.dst, d.key); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, v, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, v, err)
	}
	*dst = d
	return nil
}

// Validate проверяет наличие обязательных полей и допустимые значения.
func (c Config) Validate() error {
	var errs []error

	switch c.Mode {
	case ModeOrchestrator, ModeDirect:
	default:
		errs = append(errs, fmt.Errorf("mode must be %s or %s, got %q", ModeOrchestrator, ModeDirect, c.Mode))
	}

	switch c.Output {
	case FormatTable, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("output must be %s or %s, got %q", FormatTable, FormatJSON, c.Output))
	}

	switch c.BackendKind() {
	case BackendSimulated:
	case BackendHTTP:
		if c.Backend.URL == "" {
			errs = append(errs, errors.New("backend.url is required for http backend"))
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend kind %q", c.Backend.Kind))
	}

	if c.Database.History && c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required for run history"))
	}
	if c.Monitor.Interval < 0 || c.Monitor.MaxWait < 0 {
		errs = append(errs, errors.New("monitor durations must not be negative"))
	}
	if c.Mode == ModeOrchestrator && len(c.Pipeline.Steps) == 0 {
		errs = append(errs, errors.New("pipeline.steps must not be empty"))
	}
	for i, s := range c.Pipeline.Steps {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("pipeline.steps[%d].name is required", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// RequireTarget проверяет, что target задан.
func (c Config) RequireTarget() error {
	if strings.TrimSpace(c.Target) == "" {
		return fmt.Errorf("%w: target is required (flag --target, MIGRATOR_TARGET or config)", ErrInvalid)
	}
	return nil
}

// BackendKind возвращает тип backend с учётом simulate:
// simulate всегда означает simulated backend.
func (c Config) BackendKind() string {
	if c.Simulate {
		return BackendSimulated
	}
	return c.Backend.Kind
}
