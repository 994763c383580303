package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/snipkeeper/internal/server/session"
	"github.com/iudanet/snipkeeper/internal/server/storage"
	"github.com/iudanet/snipkeeper/pkg/api"
)

const internalErrorMessage = "internal server error"

// responder содержит общие для всех handlers методы ответа
type responder struct {
	logger *slog.Logger
	// devMode добавляет текст внутренней ошибки в ответ 500
	devMode bool
}

func newResponder(logger *slog.Logger, devMode bool) responder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return responder{logger: logger, devMode: devMode}
}

// sendJSON отправляет JSON ответ
func (h responder) sendJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func (h responder) sendError(w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	h.sendJSON(w, resp, statusCode)
}

// decode читает JSON тело запроса. При ошибке ответ уже отправлен.
func (h responder) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		h.logger.WarnContext(r.Context(), "request body too large", slog.Int64("limit", maxErr.Limit))
		h.sendError(w, "request body too large", http.StatusRequestEntityTooLarge)
		return false
	}

	h.logger.WarnContext(r.Context(), "failed to decode request body", slog.Any("error", err))
	h.sendError(w, "invalid request body", http.StatusBadRequest)
	return false
}

// userID возвращает пользователя, которого положил auth middleware
func (h responder) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.sendError(w, "Authentication required", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

// sendStorageError переводит ошибку хранилища в HTTP ответ
func (h responder) sendStorageError(w http.ResponseWriter, r *http.Request, op, userID string, err error) {
	ctx := r.Context()
	status := statusFor(err)

	if status != http.StatusInternalServerError {
		h.logger.WarnContext(ctx, op+" rejected",
			slog.String("user_id", session.ShortID(userID)),
			slog.Any("error", err))
		h.sendError(w, err.Error(), status)
		return
	}

	h.logger.ErrorContext(ctx, op+" failed",
		slog.String("user_id", session.ShortID(userID)),
		slog.Any("error", err))

	msg := internalErrorMessage
	if h.devMode {
		msg = err.Error()
	}
	h.sendError(w, msg, status)
}

// statusFor возвращает HTTP статус для ошибки хранилища
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicateName),
		errors.Is(err, storage.ErrDuplicateTrigger),
		errors.Is(err, storage.ErrReservedName),
		errors.Is(err, storage.ErrReservedFolder):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
