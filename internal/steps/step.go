package steps

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/backend"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/monitor"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/notify"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/pipeline"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/telemetry"
)

// Ошибки шагов.
var (
	// ErrStepNotFound — тип шага не найден в реестре.
	ErrStepNotFound = errors.New("step type not found")

	// ErrInvalidConfig — невалидная конфигурация шага.
	ErrInvalidConfig = errors.New("invalid step config")

	// ErrStepCancelled — выполнение шага отменено.
	ErrStepCancelled = errors.New("step execution cancelled")

	// ErrValidation — проверка перед миграцией не прошла.
	ErrValidation = errors.New("validation failed")

	// ErrMissingDependency — шагу не передан нужный коллаборатор.
	ErrMissingDependency = errors.New("missing step dependency")
)

// InputTarget — ключ входного параметра с ref задачи репликации.
const InputTarget = "target"

// Kind — тип шага: собирает pipeline.Action из Definition.
type Kind interface {
	// Type возвращает тип шага.
	Type() string

	// Build создаёт action. Ошибки конфигурации возвращаются сразу,
	// а не при выполнении.
	Build(def Definition, deps Deps) (pipeline.Action, error)
}

// Definition — описание шага в конфигурации pipeline.
type Definition struct {
	Name     string         `yaml:"name" json:"name"`
	Type     string         `yaml:"type" json:"type"`
	Required bool           `yaml:"required" json:"required"`
	Config   map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// Deps — коллабораторы, доступные шагам.
type Deps struct {
	Backend  backend.Backend
	Notifier notify.Notifier

	// Monitor — параметры polling по умолчанию для шага monitor.
	Monitor monitor.Config

	// Simulate — режим симуляции: validate не обращается к backend.
	Simulate bool

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func (d Deps) requireBackend(stepType string) error {
	if d.Backend == nil {
		return fmt.Errorf("%w: %s: backend", ErrMissingDependency, stepType)
	}
	return nil
}

// resolveTarget: config "target" приоритетнее входного параметра run.
func resolveTarget(config map[string]any, rc *pipeline.RunContext) string {
	if t := GetConfigString(config, InputTarget); t != "" {
		return t
	}
	return rc.InputString(InputTarget, "")
}

// GetConfigString извлекает строковое значение из конфига.
func GetConfigString(config map[string]any, key string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetConfigInt извлекает числовое значение из конфига.
// YAML даёт int, JSON — float64.
func GetConfigInt(config map[string]any, key string) int {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}

// GetConfigBool извлекает булево значение из конфига.
func GetConfigBool(config map[string]any, key string, defaultVal bool) bool {
	if v, ok := config[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// GetConfigStrings извлекает список строк из конфига.
func GetConfigStrings(config map[string]any, key string) []string {
	switch v := config[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// GetConfigDuration извлекает длительность: строка ("30s") или <key>_sec.
func GetConfigDuration(config map[string]any, key string) (time.Duration, error) {
	if s := GetConfigString(config, key); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
		return d, nil
	}
	if sec := GetConfigInt(config, key+"_sec"); sec > 0 {
		return time.Duration(sec) * time.Second, nil
	}
	return 0, nil
}
