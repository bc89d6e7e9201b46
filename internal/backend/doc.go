// Package backend — коллаборатор "migration backend": запуск и опрос
// задачи репликации.
//
// # Контракт
//
//	Start(ctx, ref)    → Handle    // запросить запуск задачи
//	Describe(ctx, ref) → domain.Task // текущий статус и прогресс
//
// Ошибки backend возвращаются как *BackendError с кодом и сообщением
// backend без изменений. Вызывающий код проверяет код через
// IsInvalidState / IsNotFound или errors.As.
//
// # Реализации
//
//   - Simulated — in-memory, скриптованные переходы статусов.
//     Используется в режиме simulate и в тестах.
//   - HTTP — клиент control API (см. internal/api).
//   - Postgres — контрольная таблица replication_tasks, которую
//     обслуживает внешний агент репликации (см. internal/repo).
package backend
