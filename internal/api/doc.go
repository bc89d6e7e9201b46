// Package api — HTTP control API для задач репликации и истории run.
//
// Структура:
//   - handler.go      — Handler с DI (backend, task admin, история, logger)
//   - routes.go       — регистрация маршрутов
//   - middleware.go   — middleware (request id, logging, recovery)
//   - response.go     — унифицированные JSON-ответы и отображение ошибок backend
//   - dto.go          — Data Transfer Objects (request/response)
//   - task_handler.go — обработчики для /tasks
//   - run_handler.go  — обработчики для /runs
//
// Формат ответов:
//
//	успех:  {"data": ...}            список: {"data": [...], "total": N}
//	ошибка: {"error": {"code": "INVALID_STATE", "message": "..."}}
//
// Коды ошибок backend передаются клиенту без изменений,
// backend.HTTP восстанавливает из них BackendError.
package api
