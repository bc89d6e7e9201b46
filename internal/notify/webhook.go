package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultWebhookTimeout = 5 * time.Second

// Webhook отправляет уведомление JSON POST запросом.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook создаёт Webhook notifier. timeout <= 0 — 5s.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Send отправляет уведомление. Статус >= 400 считается ошибкой.
func (w *Webhook) Send(ctx context.Context, msg Message) error {
	if w.url == "" {
		return &NotifyError{Channel: "webhook", Err: ErrUnavailable}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return &NotifyError{Channel: "webhook", Err: fmt.Errorf("marshal: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return &NotifyError{Channel: "webhook", Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return &NotifyError{Channel: "webhook", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode >= http.StatusBadRequest {
		return &NotifyError{Channel: "webhook", Err: fmt.Errorf("http status %d", resp.StatusCode)}
	}
	return nil
}
