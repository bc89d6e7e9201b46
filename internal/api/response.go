package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/backend"
	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/repo"
)

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — структура ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

const (
	codeNotImplemented = "NOT_IMPLEMENTED"
	codeConflict       = "CONFLICT"
)

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success отправляет успешный ответ с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Created отправляет ответ о создании ресурса.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, DataResponse{Data: data})
}

// List отправляет ответ со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, backend.CodeBadRequest, message)
}

// NotFound отправляет ошибку 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, backend.CodeNotFound, message)
}

// NotImplemented отправляет ошибку 501 для не подключённых хранилищ.
func NotImplemented(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotImplemented, codeNotImplemented, message)
}

// InternalError отправляет ошибку 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, backend.CodeInternal, "internal server error")
}

// HandleBackendError отвечает ошибкой backend с сохранением кода и сообщения.
func HandleBackendError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}

	var be *backend.BackendError
	if !errors.As(err, &be) {
		InternalError(w, logger, err)
		return true
	}

	message := be.Message
	if message == "" && be.Err != nil {
		message = be.Err.Error()
	}

	status := http.StatusInternalServerError
	switch be.Code {
	case backend.CodeBadRequest:
		status = http.StatusBadRequest
	case backend.CodeNotFound:
		status = http.StatusNotFound
	case backend.CodeInvalidState:
		status = http.StatusUnprocessableEntity
	case backend.CodeUnavailable:
		status = http.StatusServiceUnavailable
	default:
		logger.Error("backend error", "op", be.Op, "error", err)
	}

	Error(w, status, be.Code, message)
	return true
}

// HandleRepoError преобразует ошибку репозитория в HTTP ответ.
func HandleRepoError(w http.ResponseWriter, logger *slog.Logger, err error, notFoundMsg string) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, repo.ErrNotFound):
		NotFound(w, notFoundMsg)
	case errors.Is(err, repo.ErrInvalidState):
		Error(w, http.StatusUnprocessableEntity, backend.CodeInvalidState, err.Error())
	case errors.Is(err, repo.ErrAlreadyExists):
		Error(w, http.StatusConflict, codeConflict, err.Error())
	default:
		InternalError(w, logger, err)
	}
	return true
}
