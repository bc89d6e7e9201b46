package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		RequestID,
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Tasks
	mux.Handle("GET /api/v1/tasks", chain(http.HandlerFunc(h.ListTasks)))
	mux.Handle("POST /api/v1/tasks", chain(http.HandlerFunc(h.RegisterTask)))
	mux.Handle("GET /api/v1/tasks/{ref}", chain(http.HandlerFunc(h.DescribeTask)))
	mux.Handle("POST /api/v1/tasks/{ref}/start", chain(http.HandlerFunc(h.StartTask)))
	mux.Handle("PUT /api/v1/tasks/{ref}/progress", chain(http.HandlerFunc(h.ReportProgress)))

	// Runs
	mux.Handle("GET /api/v1/runs", chain(http.HandlerFunc(h.ListRuns)))
	mux.Handle("GET /api/v1/runs/{id}", chain(http.HandlerFunc(h.GetRun)))
}
