// Package pipeline выполняет упорядоченный список именованных шагов
// с семантикой обязательных/опциональных шагов и одним retry.
//
// # Обзор
//
// Pipeline — фиксированная последовательность Step. Каждый шаг:
//   - Получает RunContext с результатами предыдущих шагов
//   - Выполняет Action и возвращает Outcome: Success(payload) или Failure(err)
//   - При успехе его payload сохраняется в RunContext под именем шага
//
// Шаги выполняются строго последовательно. Action может сам быть
// конкурентным, но для orchestrator это атомарная единица.
//
// # Обязательные и опциональные шаги
//
//   - Опциональный шаг (Required=false): ошибка записывается в Warnings,
//     pipeline продолжается. Retry не выполняется.
//   - Обязательный шаг (Required=true): ошибка записывается в Errors и
//     вызывается обработчик ошибок.
//
// Обработчик ошибок обязательного шага:
//
//  1. уведомление Notifier (синхронно; ошибка доставки только логируется)
//  2. ожидание RetryBackoff (по умолчанию 5 минут, прерывается ctx)
//  3. ровно одна повторная попытка Action с нуля
//  4. успех → StepOutcome заменяется успешным, запись в Errors удаляется,
//     pipeline продолжается; неудача → pipeline останавливается
//
// # Использование
//
//	orch, err := pipeline.Configure([]pipeline.Step{
//	    pipeline.Required("validate", validate),
//	    pipeline.Required("migrate", migrate),
//	    pipeline.Optional("monitor", monitor),
//	    pipeline.Optional("notify", notifyStep),
//	}, pipeline.Config{Notifier: n, Logger: logger})
//	if err != nil {
//	    // ErrInvalidConfig: пустой список, дубликат имени, nil action
//	}
//
//	result, err := orch.Run(ctx, pipeline.NewRunContext(inputs))
//	// err != nil только при ErrContextConflict (RunContext уже использован)
//	// все ошибки шагов — в result.Errors / result.Warnings
//
// # Отмена
//
// ctx проверяется перед каждым шагом и во время ожидания retry.
// При отмене Run возвращает Result с Success=false, Cancelled=true
// и записью "pipeline cancelled: ..." в Errors — без ошибки.
//
// # Конкурентность
//
// Orchestrator неизменяем после Configure. Несколько Run на одном
// Orchestrator могут идти параллельно: состояние run (Result, RunContext)
// принадлежит только этому run.
package pipeline
