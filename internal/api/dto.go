package api

import (
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/domain"
)

// RegisterTaskRequest — регистрация задачи репликации.
type RegisterTaskRequest struct {
	Ref string `json:"ref"`
}

// ProgressRequest — отчёт агента репликации о прогрессе.
type ProgressRequest struct {
	Status          domain.TaskStatus `json:"status"`
	ProgressPercent int               `json:"progress_percent"`
	Error           string            `json:"error,omitempty"`
}
