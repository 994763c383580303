package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iudanet/snipkeeper/internal/models"
	"github.com/iudanet/snipkeeper/internal/server/session"
	"github.com/iudanet/snipkeeper/internal/server/storage"
	"github.com/iudanet/snipkeeper/pkg/api"
)

// ClipboardHandler обрабатывает запросы к истории буфера обмена
type ClipboardHandler struct {
	store storage.ClipboardStorage
	responder
}

// NewClipboardHandler создает handler для буфера обмена
func NewClipboardHandler(logger *slog.Logger, store storage.ClipboardStorage, devMode bool) *ClipboardHandler {
	return &ClipboardHandler{
		responder: newResponder(logger, devMode),
		store:     store,
	}
}

// List обрабатывает GET /api/clipboard, новые записи первыми
func (h *ClipboardHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	items, err := h.store.ListClipboardItems(r.Context(), userID)
	if err != nil {
		h.sendStorageError(w, r, "list clipboard", userID, err)
		return
	}
	h.sendJSON(w, items, http.StatusOK)
}

// Create обрабатывает POST /api/clipboard
// Повтор в течение окна дедупликации возвращает существующую запись
func (h *ClipboardHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var input models.ClipboardInput
	if !h.decode(w, r, &input) {
		return
	}

	item, err := h.store.CreateClipboardItem(r.Context(), input, userID)
	if err != nil {
		h.sendStorageError(w, r, "create clipboard item", userID, err)
		return
	}
	h.sendJSON(w, item, http.StatusCreated)
}

// Delete обрабатывает DELETE /api/clipboard/{id}
func (h *ClipboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteClipboardItem(r.Context(), mux.Vars(r)["id"], userID); err != nil {
		h.sendStorageError(w, r, "delete clipboard item", userID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear обрабатывает DELETE /api/clipboard
func (h *ClipboardHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	removed, err := h.store.ClearClipboardHistory(r.Context(), userID)
	if err != nil {
		h.sendStorageError(w, r, "clear clipboard", userID, err)
		return
	}

	h.logger.InfoContext(r.Context(), "clipboard history cleared",
		slog.String("user_id", session.ShortID(userID)),
		slog.Int("removed", removed))
	h.sendJSON(w, api.ClearResponse{Removed: removed}, http.StatusOK)
}
