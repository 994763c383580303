package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/snipkeeper/pkg/api"
)

const healthPingTimeout = 2 * time.Second

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionCounter возвращает количество активных сессий
type SessionCounter interface {
	Count() int
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger   *slog.Logger
	storage  Pinger
	sessions SessionCounter
	version  string
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, storage Pinger, sessions SessionCounter, version string) *HealthHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HealthHandler{
		logger:   logger,
		storage:  storage,
		sessions: sessions,
		version:  version,
	}
}

// Health обрабатывает GET /api/health
// 503 если хранилище недоступно
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	resp := api.HealthResponse{
		Status:   "ok",
		Storage:  "ok",
		Sessions: h.sessions.Count(),
		Version:  h.version,
	}
	status := http.StatusOK

	if err := h.storage.Ping(ctx); err != nil {
		h.logger.ErrorContext(r.Context(), "storage health check failed", slog.Any("error", err))
		resp.Status = "degraded"
		resp.Storage = "unavailable"
		status = http.StatusServiceUnavailable
	}

	responder{logger: h.logger}.sendJSON(w, resp, status)
}
