package steps

import (
	"fmt"
	"sort"
	"sync"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/pipeline"
)

// Registry — реестр типов шагов.
//
// Потокобезопасен.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[string]Kind),
	}
}

// DefaultRegistry создаёт реестр со всеми стандартными типами шагов.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(NewValidateKind())
	r.Register(NewMigrateKind())
	r.Register(NewMonitorKind())
	r.Register(NewNotifyKind())
	r.Register(NewDelayKind())
	r.Register(NewHTTPKind())

	return r
}

// Register регистрирует тип шага.
// Если тип уже существует, он будет перезаписан.
func (r *Registry) Register(kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind.Type()] = kind
}

// Get возвращает тип шага.
// Возвращает ErrStepNotFound, если тип не найден.
func (r *Registry) Get(stepType string) (Kind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kind, exists := r.kinds[stepType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, stepType)
	}
	return kind, nil
}

// Has проверяет, зарегистрирован ли тип.
func (r *Registry) Has(stepType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.kinds[stepType]
	return exists
}

// Types возвращает отсортированный список зарегистрированных типов.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.kinds))
	for t := range r.kinds {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Build собирает шаги pipeline из определений.
//
// Пустой Type означает Type == Name. Ошибка конфигурации любого шага
// прерывает сборку.
func (r *Registry) Build(defs []Definition, deps Deps) ([]pipeline.Step, error) {
	out := make([]pipeline.Step, 0, len(defs))
	for _, def := range defs {
		if def.Type == "" {
			def.Type = def.Name
		}

		kind, err := r.Get(def.Type)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", def.Name, err)
		}

		action, err := kind.Build(def, deps)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", def.Name, err)
		}

		out = append(out, pipeline.Step{
			Name:     def.Name,
			Action:   action,
			Required: def.Required,
		})
	}
	return out, nil
}

// DefaultDefinitions — стандартный pipeline миграции:
// validate (обязательный) → migrate (обязательный) → monitor → notify.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Name: StepTypeValidate, Type: StepTypeValidate, Required: true},
		{Name: StepTypeMigrate, Type: StepTypeMigrate, Required: true},
		{Name: StepTypeMonitor, Type: StepTypeMonitor},
		{Name: StepTypeNotify, Type: StepTypeNotify},
	}
}
