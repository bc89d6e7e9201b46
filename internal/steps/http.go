package steps

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/pipeline"
)

const (
	// StepTypeHTTP — проверка HTTP endpoint.
	StepTypeHTTP = "http"

	defaultHTTPTimeout = 30 * time.Second
	maxResponseBody    = 64 * 1024
)

// HTTPKind — шаг HTTP проверки.
//
// Делает запрос к endpoint (например health check источника или
// приёмника) и проверяет код ответа.
//
// Конфигурация:
//
//	{
//	    "url": "https://db-proxy.internal/health",
//	    "method": "GET",
//	    "headers": {"Authorization": "Bearer xxx"},
//	    "expect_status": 200,     // по умолчанию любой 2xx
//	    "validate_ssl": true,
//	    "timeout": "10s"          // или timeout_sec
//	}
type HTTPKind struct{}

// HTTPResult — результат http шага.
type HTTPResult struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body,omitempty"`
}

// HTTPError — неожиданный код ответа.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

// Error реализует интерфейс error.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// NewHTTPKind создаёт HTTPKind.
func NewHTTPKind() *HTTPKind {
	return &HTTPKind{}
}

// Type возвращает тип шага.
func (k *HTTPKind) Type() string {
	return StepTypeHTTP
}

// Build проверяет конфигурацию и создаёт action.
func (k *HTTPKind) Build(def Definition, _ Deps) (pipeline.Action, error) {
	url := GetConfigString(def.Config, "url")
	if url == "" {
		return nil, fmt.Errorf("%w: %s: url is required", ErrInvalidConfig, StepTypeHTTP)
	}
	method := strings.ToUpper(GetConfigString(def.Config, "method"))
	if method == "" {
		method = http.MethodGet
	}
	headers := make(map[string]string)
	if m, ok := def.Config["headers"].(map[string]any); ok {
		for key, v := range m {
			if s, ok := v.(string); ok {
				headers[key] = s
			}
		}
	}
	expect := GetConfigInt(def.Config, "expect_status")

	timeout, err := GetConfigDuration(def.Config, "timeout")
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: !GetConfigBool(def.Config, "validate_ssl", true),
			},
		},
	}

	return pipeline.ActionFunc(func(ctx context.Context, _ *pipeline.RunContext) pipeline.Outcome {
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return pipeline.Failure(fmt.Errorf("build request: %w", err))
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return pipeline.Failure(fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err()))
			}
			return pipeline.Failure(fmt.Errorf("http request failed: %w", err))
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return pipeline.Failure(fmt.Errorf("read response body: %w", err))
		}

		ok := resp.StatusCode >= 200 && resp.StatusCode < 300
		if expect > 0 {
			ok = resp.StatusCode == expect
		}
		if !ok {
			return pipeline.Failure(&HTTPError{
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Body:       string(body),
			})
		}
		return pipeline.Success(HTTPResult{StatusCode: resp.StatusCode, Body: string(body)})
	}), nil
}
