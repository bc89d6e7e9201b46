package pipeline

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// RunContext — общий контекст одного run.
//
// Содержит входные параметры и результаты успешных шагов (имя шага → payload).
// Результат каждого шага записывается один раз; последующие шаги только читают.
// Методы безопасны для конкурентного использования.
type RunContext struct {
	inputs map[string]any

	mu          sync.RWMutex
	executionID string
	results     map[string]any
	order       []string
}

// NewRunContext создаёт RunContext с копией inputs.
func NewRunContext(inputs map[string]any) *RunContext {
	in := make(map[string]any, len(inputs))
	maps.Copy(in, inputs)

	return &RunContext{
		inputs:  in,
		results: make(map[string]any),
	}
}

// ExecutionID возвращает ID run, к которому привязан контекст.
// Пустая строка, если run ещё не начался.
func (c *RunContext) ExecutionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.executionID
}

// Input возвращает входной параметр.
func (c *RunContext) Input(key string) (any, bool) {
	v, ok := c.inputs[key]
	return v, ok
}

// InputString возвращает строковый входной параметр или fallback.
func (c *RunContext) InputString(key, fallback string) string {
	if v, ok := c.inputs[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// Result возвращает результат шага.
func (c *RunContext) Result(step string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.results[step]
	return v, ok
}

// Results возвращает копию всех результатов.
func (c *RunContext) Results() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.results)
}

// StepOrder возвращает имена шагов с результатами в порядке записи.
func (c *RunContext) StepOrder() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}

// ResultAs возвращает результат шага, приведённый к T.
func ResultAs[T any](c *RunContext, step string) (T, bool) {
	var zero T
	v, ok := c.Result(step)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// bind привязывает контекст к run. Повторная привязка — ошибка.
func (c *RunContext) bind(executionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.executionID != "" {
		return fmt.Errorf("%w: %s", ErrContextConflict, c.executionID)
	}
	if len(c.results) > 0 {
		return fmt.Errorf("%w: context already holds %d results", ErrContextConflict, len(c.results))
	}

	c.executionID = executionID
	return nil
}

// store записывает результат шага (write-once).
func (c *RunContext) store(step string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.results[step]; exists {
		return fmt.Errorf("%w: %s", ErrResultExists, step)
	}
	c.results[step] = payload
	c.order = append(c.order, step)
	return nil
}
