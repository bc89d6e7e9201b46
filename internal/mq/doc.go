// Package mq — транспорт событий pipeline через RabbitMQ.
//
// Orchestrator публикует события (падение обязательного шага, итог run)
// в topic exchange migrator.events. Durable очередь migrator.notifications
// получает все события для внешних подписчиков (алерты, Slack bridge и т.п.),
// а команда `migrator events` читает их через временную exclusive очередь,
// не забирая сообщения у основных потребителей.
//
// Топология:
//
//	migrator.events (topic)
//	├── migrator.notifications [routing: pipeline.#, migration.#]
//	│       DLQ: dlq.notifications
//	└── amq.gen-* (exclusive) [routing: #]   — migrator events
//
//	migrator.dlq (direct)
//	└── dlq.notifications [routing: notifications]
//
// Connection переподключается автоматически с экспоненциальной задержкой
// и пересоздаёт канал, закрытый брокером. Consumer перезапускает потребление
// после переподключения и заново объявляет свою очередь через
// ConsumerConfig.Declare (exclusive очередь не переживает разрыв соединения).
package mq
