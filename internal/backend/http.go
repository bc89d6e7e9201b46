package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTP — клиент control API.
//
//	POST {base}/api/v1/tasks/{ref}/start → {"data": Handle}
//	GET  {base}/api/v1/tasks/{ref}       → {"data": Task}
//	ошибки                               → {"error": {"code", "message"}}
type HTTP struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTP создаёт клиент. timeout <= 0 — 30 секунд.
func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Start запрашивает запуск задачи.
func (c *HTTP) Start(ctx context.Context, ref string) (Handle, error) {
	if err := checkRef("start", ref); err != nil {
		return Handle{}, err
	}

	var h Handle
	err := c.doData(ctx, "start", http.MethodPost, taskPath(ref)+"/start", struct{}{}, &h)
	return h, err
}

// Describe возвращает состояние задачи.
func (c *HTTP) Describe(ctx context.Context, ref string) (domain.Task, error) {
	if err := checkRef("describe", ref); err != nil {
		return domain.Task{}, err
	}

	var t domain.Task
	err := c.doData(ctx, "describe", http.MethodGet, taskPath(ref), nil, &t)
	if err == nil {
		t.Status = domain.ParseTaskStatus(string(t.Status))
	}
	return t, err
}

func taskPath(ref string) string {
	return "/api/v1/tasks/" + url.PathEscape(ref)
}

// --- HTTP helpers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *HTTP) doData(ctx context.Context, op, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return &BackendError{Op: op, Code: CodeBadRequest, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &BackendError{Op: op, Code: CodeUnavailable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(op, resp)
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return &BackendError{Op: op, Code: CodeInternal, Err: fmt.Errorf("decode response: %w", err)}
	}
	if err := json.Unmarshal(dr.Data, result); err != nil {
		return &BackendError{Op: op, Code: CodeInternal, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

func decodeError(op string, resp *http.Response) error {
	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error.Code == "" {
		code := CodeInternal
		switch resp.StatusCode {
		case http.StatusNotFound:
			code = CodeNotFound
		case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
			code = CodeUnavailable
		}
		return &BackendError{Op: op, Code: code, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	return &BackendError{Op: op, Code: er.Error.Code, Message: er.Error.Message}
}
