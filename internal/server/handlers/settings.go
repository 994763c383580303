package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/snipkeeper/internal/models"
	"github.com/iudanet/snipkeeper/internal/server/storage"
)

// SettingsHandler обрабатывает запросы к глобальным настройкам
type SettingsHandler struct {
	store storage.SettingsStorage
	responder
}

// NewSettingsHandler создает handler для настроек
func NewSettingsHandler(logger *slog.Logger, store storage.SettingsStorage, devMode bool) *SettingsHandler {
	return &SettingsHandler{
		responder: newResponder(logger, devMode),
		store:     store,
	}
}

// Get обрабатывает GET /api/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	settings, err := h.store.GetSettings(r.Context())
	if err != nil {
		h.sendStorageError(w, r, "get settings", userID, err)
		return
	}
	h.sendJSON(w, settings, http.StatusOK)
}

// Update обрабатывает PUT и PATCH /api/settings
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var update models.SettingsUpdate
	if !h.decode(w, r, &update) {
		return
	}

	settings, err := h.store.UpdateSettings(r.Context(), update)
	if err != nil {
		h.sendStorageError(w, r, "update settings", userID, err)
		return
	}
	h.sendJSON(w, settings, http.StatusOK)
}
