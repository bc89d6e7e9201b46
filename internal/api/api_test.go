package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/backend"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/repo"
)

// fakeTasks — in-memory TaskAdmin.
type fakeTasks struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{tasks: make(map[string]*domain.Task)}
}

func (f *fakeTasks) Register(_ context.Context, ref string) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.tasks[ref]; ok {
		return nil, repo.ErrAlreadyExists
	}
	t := &domain.Task{Ref: ref, Status: domain.TaskStatusPending, UpdatedAt: time.Now().UTC()}
	f.tasks[ref] = t
	return t, nil
}

func (f *fakeTasks) List(_ context.Context) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]domain.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTasks) UpdateProgress(_ context.Context, ref string, status domain.TaskStatus, percent int, taskErr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tasks[ref]
	if !ok {
		return repo.ErrNotFound
	}
	t.SetProgress(status, percent)
	t.Error = taskErr
	return nil
}

// fakeRuns — in-memory RunStore.
type fakeRuns struct {
	runs []domain.Run
	last repo.RunFilter
}

func (f *fakeRuns) GetByID(_ context.Context, id uuid.UUID) (*domain.Run, error) {
	for _, r := range f.runs {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeRuns) List(_ context.Context, filter repo.RunFilter) ([]domain.Run, error) {
	f.last = filter
	var out []domain.Run
	for _, r := range f.runs {
		if filter.Target != "" && r.Target != filter.Target {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()

	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := http.NewServeMux()
	NewHandler(cfg).RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func decodeError(t *testing.T, resp *http.Response) ErrorDetail {
	t.Helper()
	var er ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return er.Error
}

func TestHTTPBackend_RoundTrip(t *testing.T) {
	sim := backend.NewSimulated(backend.SimulatedConfig{})
	srv := newTestServer(t, Config{Backend: sim})
	client := backend.NewHTTP(srv.URL, time.Second)
	ctx := context.Background()

	task, err := client.Describe(ctx, "task-1")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if task.Status != domain.TaskStatusPending {
		t.Errorf("status = %s, want pending", task.Status)
	}

	h, err := client.Start(ctx, "task-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if h.Ref != "task-1" || h.Status != domain.TaskStatusStarting {
		t.Errorf("unexpected handle: %+v", h)
	}

	// Повторный запуск — INVALID_STATE с сообщением backend.
	_, err = client.Start(ctx, "task-1")
	if !backend.IsInvalidState(err) {
		t.Fatalf("expected INVALID_STATE, got %v", err)
	}
	if !strings.Contains(err.Error(), "task task-1 is starting") {
		t.Errorf("backend message lost: %v", err)
	}

	client.Describe(ctx, "task-1")
	task, err = client.Describe(ctx, "task-1")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if task.Status != domain.TaskStatusRunning || task.ProgressPercent != 25 {
		t.Errorf("unexpected task: %+v", task)
	}
}

func TestHandleBackendError_Codes(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{backend.CodeBadRequest, http.StatusBadRequest},
		{backend.CodeNotFound, http.StatusNotFound},
		{backend.CodeInvalidState, http.StatusUnprocessableEntity},
		{backend.CodeUnavailable, http.StatusServiceUnavailable},
		{backend.CodeInternal, http.StatusInternalServerError},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			err := &backend.BackendError{Op: "describe", Code: tt.code, Message: "boom"}
			if !HandleBackendError(rec, logger, err) {
				t.Fatal("expected handled")
			}
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var er ErrorResponse
			json.NewDecoder(rec.Body).Decode(&er)
			if er.Error.Code != tt.code || er.Error.Message != "boom" {
				t.Errorf("unexpected body: %+v", er)
			}
		})
	}
}

func TestTasks_RegisterAndProgress(t *testing.T) {
	tasks := newFakeTasks()
	srv := newTestServer(t, Config{Backend: backend.NewSimulated(backend.SimulatedConfig{}), Tasks: tasks})

	resp, err := http.Post(srv.URL+"/api/v1/tasks", "application/json", strings.NewReader(`{"ref":"task-1"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/v1/tasks", "application/json", strings.NewReader(`{"ref":"task-1"}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	body := `{"status":"RUNNING","progress_percent":40}`
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/tasks/task-1/progress", strings.NewReader(body))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("progress status = %d", resp.StatusCode)
	}
	if got := tasks.tasks["task-1"]; got.Status != domain.TaskStatusRunning || got.ProgressPercent != 40 {
		t.Errorf("unexpected task: %+v", got)
	}

	req, _ = http.NewRequest(http.MethodPut, srv.URL+"/api/v1/tasks/task-1/progress", strings.NewReader(`{"status":"exploded"}`))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid status accepted: %d", resp.StatusCode)
	}
	if got := decodeError(t, resp); got.Code != backend.CodeBadRequest {
		t.Errorf("code = %q", got.Code)
	}
	resp.Body.Close()

	req, _ = http.NewRequest(http.MethodPut, srv.URL+"/api/v1/tasks/missing/progress", strings.NewReader(body))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing task status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/v1/tasks")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var list struct {
		Data  []domain.Task `json:"data"`
		Total int           `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || list.Data[0].Ref != "task-1" {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestTasks_NotConfigured(t *testing.T) {
	srv := newTestServer(t, Config{Backend: backend.NewSimulated(backend.SimulatedConfig{})})

	resp, err := http.Post(srv.URL+"/api/v1/tasks", "application/json", bytes.NewReader([]byte(`{"ref":"x"}`)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", resp.StatusCode)
	}
}

func TestRuns_ListAndGet(t *testing.T) {
	id := uuid.New()
	runs := &fakeRuns{runs: []domain.Run{
		{ID: id, Pipeline: "migration", Target: "task-1", Status: domain.RunStatusSucceeded},
		{ID: uuid.New(), Pipeline: "migration", Target: "task-2", Status: domain.RunStatusFailed},
	}}
	srv := newTestServer(t, Config{Backend: backend.NewSimulated(backend.SimulatedConfig{}), Runs: runs})

	resp, err := http.Get(srv.URL + "/api/v1/runs?target=task-1&limit=5")
	if err != nil {
		t.Fatal(err)
	}
	var list struct {
		Data  []domain.Run `json:"data"`
		Total int          `json:"total"`
	}
	json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()
	if list.Total != 1 || list.Data[0].ID != id {
		t.Errorf("unexpected list: %+v", list)
	}
	if runs.last.Limit != 5 {
		t.Errorf("limit = %d, want 5", runs.last.Limit)
	}

	resp, err = http.Get(srv.URL + "/api/v1/runs/" + id.String())
	if err != nil {
		t.Fatal(err)
	}
	var one struct {
		Data domain.Run `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&one)
	resp.Body.Close()
	if one.Data.ID != id || one.Data.Target != "task-1" {
		t.Errorf("unexpected run: %+v", one.Data)
	}

	resp, err = http.Get(srv.URL + "/api/v1/runs/not-a-uuid")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad id status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/v1/runs/" + uuid.NewString())
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing run status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/v1/runs?status=bogus")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bogus status filter = %d", resp.StatusCode)
	}
}

func TestMiddleware_RequestIDAndRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Chain(RequestID, Recovery(logger), Logging(logger))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if RequestIDFrom(r.Context()) == "" {
			t.Error("request id missing in context")
		}
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if got := rec.Header().Get(HeaderRequestID); got != "req-1" {
		t.Errorf("request id = %q", got)
	}
}
