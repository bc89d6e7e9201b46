package notify

import (
	"context"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/mq"
)

// MQ публикует уведомления в RabbitMQ (exchange migrator.events).
// Event используется как тип сообщения и routing key.
type MQ struct {
	publisher *mq.Publisher
}

// NewMQ создаёт MQ notifier.
func NewMQ(publisher *mq.Publisher) *MQ {
	return &MQ{publisher: publisher}
}

// Send публикует уведомление.
func (n *MQ) Send(ctx context.Context, msg Message) error {
	if n.publisher == nil {
		return &NotifyError{Channel: "amqp", Err: ErrUnavailable}
	}
	if err := n.publisher.PublishEvent(ctx, mq.MessageType(msg.Event), msg); err != nil {
		return &NotifyError{Channel: "amqp", Err: err}
	}
	return nil
}
