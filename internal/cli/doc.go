// Package cli реализует инструмент командной строки migrator.
//
// # Обзор
//
// CLI запускает pipeline миграции для одной задачи репликации и
// обслуживающие команды вокруг него. Коллабораторы (backend, notifier,
// история) собираются из config.Config в runtime.
//
// # Команды
//
//   - run: pipeline (mode orchestrator) или start + monitor (mode direct)
//   - status: однократный describe задачи
//   - history: история run из Postgres
//   - events: поток событий pipeline из RabbitMQ
//   - serve: HTTP control API + /metrics
//   - schedule: периодические run по cron
//
// # Конфигурация
//
// Порядок: Default() → YAML (--config) → окружение → флаги.
// Флаги применяются только если заданы явно (cmd.Flags().Changed).
//
// # Output
//
// Таблицы (text/tabwriter) по умолчанию, JSON с --output json.
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr:
//
//	migrator run --target task-1 --output json | jq .success
package cli
