// Package steps содержит типы шагов pipeline миграции.
//
// # Обзор
//
// Kind — фабрика шага: по Definition (name, type, required, config)
// и Deps (backend, notifier, параметры polling) собирает pipeline.Action.
// Ошибки конфигурации обнаруживаются при сборке, а не во время run.
//
//	registry := steps.DefaultRegistry()
//	pipelineSteps, err := registry.Build(steps.DefaultDefinitions(), deps)
//	if err != nil {
//	    // неизвестный тип, невалидный config, нет коллаборатора
//	}
//
// # Типы шагов
//
// ## validate (validate.go)
//
// Проверяет target и обязательные входные параметры, затем делает
// Describe задачи как проверку связи с backend (кроме simulate).
//
// ## migrate (migrate.go)
//
// Backend.Start. На INVALID_STATE проверяет статус: если задача уже
// starting/running — шаг успешен с AlreadyRunning=true.
//
// ## monitor (monitor.go)
//
// monitor.Poller до running/completed. failed/stopped и timeout —
// ошибка шага (timeout можно принять через accept_timeout).
//
// ## notify (notify.go)
//
// Сводка по результатам предыдущих шагов через Notifier
// (событие migration.status).
//
// ## delay (delay.go)
//
// Пауза, прерываемая отменой context.
//
// ## http (http.go)
//
// Проверка HTTP endpoint по коду ответа.
//
// # Target
//
// Ref задачи берётся из config "target" шага, иначе из входного
// параметра run "target" (InputTarget).
//
// # Стандартный pipeline
//
//	validate (required) → migrate (required) → monitor → notify
package steps
