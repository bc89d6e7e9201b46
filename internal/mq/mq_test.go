package mq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestNewMessage(t *testing.T) {
	a := NewMessage(MessageTypePipelineCompleted, map[string]any{"success": true})
	b := NewMessage(MessageTypePipelineCompleted, nil)

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("message ids should be unique and non-empty: %q %q", a.ID, b.ID)
	}
	if a.Type != MessageTypePipelineCompleted {
		t.Errorf("unexpected type %s", a.Type)
	}
	if a.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestParsePayload(t *testing.T) {
	type stepFailed struct {
		ExecutionID string `json:"execution_id"`
		Step        string `json:"step"`
	}

	// Сообщение после round-trip через JSON: payload становится map[string]any
	raw, err := json.Marshal(NewMessage(MessageTypeStepFailed, stepFailed{ExecutionID: "e1", Step: "migrate"}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got, err := ParsePayload[stepFailed](&msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ExecutionID != "e1" || got.Step != "migrate" {
		t.Errorf("unexpected payload %+v", got)
	}
}

// scriptedSetup возвращает заранее заданные результаты настройки consumer.
type scriptedSetup struct {
	calls   int
	results []func() (<-chan amqp.Delivery, error)
}

func (s *scriptedSetup) next() (<-chan amqp.Delivery, error) {
	i := min(s.calls, len(s.results)-1)
	s.calls++
	return s.results[i]()
}

func closedDeliveries() (<-chan amqp.Delivery, error) {
	ch := make(chan amqp.Delivery)
	close(ch)
	return ch, nil
}

func queueGone() (<-chan amqp.Delivery, error) {
	return nil, errors.New(`consume amq.gen-1: Exception (404) Reason: "NOT_FOUND - no queue"`)
}

func noWait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func TestConsumer_StopsAfterRepeatedSetupFailures(t *testing.T) {
	c := NewConsumer(nil, quietLogger(), ConsumerConfig{Queue: "amq.gen-1", MaxSetupRetries: 3})
	setup := &scriptedSetup{results: []func() (<-chan amqp.Delivery, error){closedDeliveries, queueGone}}
	c.setup = setup.next
	c.sleep = noWait

	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background()) }()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "NOT_FOUND") {
			t.Fatalf("expected setup error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer hangs after the queue disappeared")
	}

	// Первая настройка успешна, затем 3 неудачные подряд.
	if setup.calls != 4 {
		t.Errorf("expected 4 setup calls, got %d", setup.calls)
	}
}

func TestConsumer_RecoversAfterChannelClose(t *testing.T) {
	handled := make(chan string, 1)
	c := NewConsumer(nil, quietLogger(), ConsumerConfig{
		Queue: "events",
		Handler: func(_ context.Context, d *Delivery) error {
			handled <- d.Message.ID
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	body, _ := json.Marshal(NewMessage(MessageTypePipelineCompleted, nil))
	live := make(chan amqp.Delivery, 1)
	live <- amqp.Delivery{Body: body}

	setup := &scriptedSetup{results: []func() (<-chan amqp.Delivery, error){
		closedDeliveries,
		queueGone,
		func() (<-chan amqp.Delivery, error) { return live, nil },
	}}
	c.setup = setup.next
	c.sleep = noWait

	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	select {
	case id := <-handled:
		if id == "" {
			t.Error("expected message id")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not resume after the channel was closed")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestConsumer_SetupWithoutConnection(t *testing.T) {
	c := NewConsumer(nil, quietLogger(), ConsumerConfig{Queue: "events"})
	if _, err := c.setupConsume(); !errors.Is(err, ErrNoChannel) {
		t.Errorf("expected ErrNoChannel, got %v", err)
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
