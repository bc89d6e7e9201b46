package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler — функция обработки сообщения.
// Ошибка приводит к nack с возвратом в очередь.
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — доставленное сообщение.
type Delivery struct {
	// Message — распарсенный конверт.
	Message Message

	// Raw — сырое AMQP сообщение.
	Raw amqp.Delivery
}

// DeclareFunc объявляет очередь на канале и возвращает её имя.
type DeclareFunc func(ch *amqp.Channel) (Queue, error)

// Параметры повторной настройки consumer.
const (
	setupRetryInitialDelay = time.Second
	setupRetryMaxDelay     = 30 * time.Second
	defaultMaxSetupRetries = 5
)

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue Queue

	// Declare вызывается перед каждым consume, в том числе после reconnect.
	// Нужен для exclusive и server-named очередей, которые брокер удаляет
	// вместе с соединением. Возвращённое имя заменяет Queue.
	Declare DeclareFunc

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — количество сообщений для предварительной загрузки (default: 1).
	Prefetch int

	// MaxSetupRetries — сколько неудачных настроек подряд допускается,
	// прежде чем Start вернёт ошибку (default: 5).
	MaxSetupRetries int
}

// Consumer потребляет события из очереди.
type Consumer struct {
	conn       *Connection
	logger     *slog.Logger
	queue      Queue
	declare    DeclareFunc
	handler    Handler
	prefetch   int
	maxRetries int

	setup       func() (<-chan amqp.Delivery, error)
	reconnected <-chan struct{}
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	maxRetries := cfg.MaxSetupRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxSetupRetries
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Consumer{
		conn:       conn,
		logger:     logger,
		queue:      cfg.Queue,
		declare:    cfg.Declare,
		handler:    cfg.Handler,
		prefetch:   prefetch,
		maxRetries: maxRetries,
		sleep:      sleepCtx,
	}
	c.setup = c.setupConsume
	if conn != nil {
		c.reconnected = conn.ReconnectNotify()
	}
	return c
}

// Start потребляет сообщения до отмены ctx.
//
// После закрытия deliveries (разрыв соединения или закрытие канала брокером)
// consumer заново настраивается: сразу после reconnect или по таймеру
// с экспоненциальной задержкой. После MaxSetupRetries неудачных настроек
// подряд возвращает последнюю ошибку.
func (c *Consumer) Start(ctx context.Context) error {
	failures := 0
	delay := setupRetryInitialDelay

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deliveries, err := c.setup()
		if err != nil {
			failures++
			c.logger.Error("failed to setup consume",
				"queue", c.queue,
				"attempt", failures,
				"of", c.maxRetries,
				"error", err,
			)
			if failures >= c.maxRetries {
				return fmt.Errorf("consumer %s: %w", c.queue, err)
			}
		} else {
			failures = 0
			delay = setupRetryInitialDelay
			c.logger.Info("consumer started", "queue", c.queue)
			err = c.processDeliveries(ctx, deliveries)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, restarting consumer", "queue", c.queue, "error", err)
		}

		if err := c.waitRetry(ctx, delay); err != nil {
			return err
		}
		delay = min(delay*2, setupRetryMaxDelay)
	}
}

// waitRetry ждёт reconnect или истечения delay.
func (c *Consumer) waitRetry(ctx context.Context, delay time.Duration) error {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.sleep(waitCtx, delay) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.reconnected:
		c.logger.Info("reconnected, restarting consumer", "queue", c.queue)
		return nil
	case <-done:
		return ctx.Err()
	}
}

func (c *Consumer) setupConsume() (<-chan amqp.Delivery, error) {
	if c.conn == nil {
		return nil, ErrNoChannel
	}
	ch, err := c.conn.OpenChannel()
	if err != nil {
		return nil, err
	}

	if c.declare != nil {
		queue, err := c.declare(ch)
		if err != nil {
			return nil, fmt.Errorf("declare queue: %w", err)
		}
		c.queue = queue
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		string(c.queue),
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.queue, err)
	}

	return deliveries, nil
}

// Queue возвращает имя очереди последней настройки.
func (c *Consumer) Queue() Queue {
	return c.queue
}

func (c *Consumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}
			c.handleDelivery(ctx, raw)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("failed to unmarshal message",
			"queue", c.queue,
			"error", err,
		)
		// Некорректное сообщение — в DLQ
		_ = raw.Nack(false, false)
		return
	}

	if err := c.handler(ctx, &Delivery{Message: msg, Raw: raw}); err != nil {
		c.logger.Error("handler failed",
			"queue", c.queue,
			"message_id", msg.ID,
			"type", msg.Type,
			"error", err,
		)
		_ = raw.Nack(false, true)
		return
	}

	_ = raw.Ack(false)
}

// ParsePayload декодирует payload сообщения в T.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}

	return result, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
