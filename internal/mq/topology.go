package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

// Exchanges.
const (
	ExchangeEvents Exchange = "migrator.events"
	ExchangeDLQ    Exchange = "migrator.dlq"
)

// Queues.
const (
	QueueNotifications    Queue = "migrator.notifications"
	QueueDLQNotifications Queue = "dlq.notifications"
)

// Routing keys.
const (
	RoutingKeyPipeline         RoutingKey = "pipeline.#"
	RoutingKeyMigration        RoutingKey = "migration.#"
	RoutingKeyAll              RoutingKey = "#"
	RoutingKeyDLQNotifications RoutingKey = "notifications"
)

// SetupTopology объявляет exchanges, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

// DeclareTail объявляет exchanges и server-named exclusive очередь,
// привязанную ко всем событиям. Подходит как ConsumerConfig.Declare:
// после reconnect очередь создаётся заново.
func DeclareTail(ch *amqp.Channel) (Queue, error) {
	if err := declareExchanges(ch); err != nil {
		return "", err
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("declare tail queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, string(RoutingKeyAll), string(ExchangeEvents), false, nil); err != nil {
		return "", fmt.Errorf("bind tail queue: %w", err)
	}

	return Queue(q.Name), nil
}

func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeEvents, amqp.ExchangeTopic},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name),
			ex.kind,
			true,  // durable
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

func declareQueues(ch *amqp.Channel) error {
	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueueNotifications, amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQNotifications),
		}},
		{QueueDLQNotifications, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name),
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			q.args,
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueNotifications, RoutingKeyPipeline, ExchangeEvents},
		{QueueNotifications, RoutingKeyMigration, ExchangeEvents},
		{QueueDLQNotifications, RoutingKeyDLQNotifications, ExchangeDLQ},
	}

	for _, b := range bindings {
		if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}
