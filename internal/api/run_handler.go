package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/repo"
)

// ListRuns возвращает историю run.
// GET /api/v1/runs?target=...&status=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		NotImplemented(w, "run history is not configured")
		return
	}

	q := r.URL.Query()
	filter := repo.RunFilter{
		Target: q.Get("target"),
		Limit:  parseInt(q.Get("limit"), 50),
		Offset: parseInt(q.Get("offset"), 0),
	}
	if status := q.Get("status"); status != "" {
		filter.Status = domain.RunStatus(status)
		if !filter.Status.IsValid() {
			BadRequest(w, "invalid status")
			return
		}
	}

	runs, err := h.runs.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}
	if runs == nil {
		runs = []domain.Run{}
	}
	List(w, runs, len(runs))
}

// GetRun возвращает run по execution id.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		NotImplemented(w, "run history is not configured")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}
	Success(w, run)
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
