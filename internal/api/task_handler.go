package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
)

// ListTasks возвращает зарегистрированные задачи.
// GET /api/v1/tasks
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	if h.tasks == nil {
		NotImplemented(w, "task registry is not configured")
		return
	}

	tasks, err := h.tasks.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	List(w, tasks, len(tasks))
}

// RegisterTask регистрирует задачу в статусе pending.
// POST /api/v1/tasks
func (h *Handler) RegisterTask(w http.ResponseWriter, r *http.Request) {
	if h.tasks == nil {
		NotImplemented(w, "task registry is not configured")
		return
	}

	var req RegisterTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	req.Ref = strings.TrimSpace(req.Ref)
	if req.Ref == "" {
		BadRequest(w, "ref is required")
		return
	}

	task, err := h.tasks.Register(r.Context(), req.Ref)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}
	Created(w, task)
}

// DescribeTask возвращает состояние задачи.
// GET /api/v1/tasks/{ref}
func (h *Handler) DescribeTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.backend.Describe(r.Context(), r.PathValue("ref"))
	if HandleBackendError(w, h.logger, err) {
		return
	}
	Success(w, task)
}

// StartTask запрашивает запуск задачи.
// POST /api/v1/tasks/{ref}/start
func (h *Handler) StartTask(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")
	handle, err := h.backend.Start(r.Context(), ref)
	if HandleBackendError(w, h.logger, err) {
		return
	}

	h.logger.Info("task start requested", "target", ref, "status", handle.Status)
	Success(w, handle)
}

// ReportProgress принимает статус и прогресс от агента репликации.
// PUT /api/v1/tasks/{ref}/progress
func (h *Handler) ReportProgress(w http.ResponseWriter, r *http.Request) {
	if h.tasks == nil {
		NotImplemented(w, "task registry is not configured")
		return
	}

	var req ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	status := domain.TaskStatus(strings.ToLower(string(req.Status)))
	if !status.IsValid() {
		BadRequest(w, "unknown status "+string(req.Status))
		return
	}

	ref := r.PathValue("ref")
	err := h.tasks.UpdateProgress(r.Context(), ref, status, req.ProgressPercent, req.Error)
	if HandleRepoError(w, h.logger, err, "task not found") {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
