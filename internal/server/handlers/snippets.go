package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iudanet/snipkeeper/internal/models"
	"github.com/iudanet/snipkeeper/internal/server/session"
	"github.com/iudanet/snipkeeper/internal/server/storage"
)

// SnippetHandler обрабатывает запросы к сниппетам
type SnippetHandler struct {
	store storage.SnippetStorage
	responder
}

// NewSnippetHandler создает handler для сниппетов
func NewSnippetHandler(logger *slog.Logger, store storage.SnippetStorage, devMode bool) *SnippetHandler {
	return &SnippetHandler{
		responder: newResponder(logger, devMode),
		store:     store,
	}
}

// List обрабатывает GET /api/snippets
func (h *SnippetHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	snippets, err := h.store.ListSnippets(r.Context(), userID)
	if err != nil {
		h.sendStorageError(w, r, "list snippets", userID, err)
		return
	}
	h.sendJSON(w, snippets, http.StatusOK)
}

// Get обрабатывает GET /api/snippets/{id}
func (h *SnippetHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	snippet, err := h.store.GetSnippet(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		h.sendStorageError(w, r, "get snippet", userID, err)
		return
	}
	h.sendJSON(w, snippet, http.StatusOK)
}

// GetByTrigger обрабатывает GET /api/snippets/trigger/{trigger}
func (h *SnippetHandler) GetByTrigger(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	snippet, err := h.store.GetSnippetByTrigger(r.Context(), mux.Vars(r)["trigger"], userID)
	if err != nil {
		h.sendStorageError(w, r, "get snippet by trigger", userID, err)
		return
	}
	h.sendJSON(w, snippet, http.StatusOK)
}

// Create обрабатывает POST /api/snippets
func (h *SnippetHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var input models.SnippetInput
	if !h.decode(w, r, &input) {
		return
	}

	snippet, err := h.store.CreateSnippet(r.Context(), input, userID)
	if err != nil {
		h.sendStorageError(w, r, "create snippet", userID, err)
		return
	}

	h.logger.InfoContext(r.Context(), "snippet created",
		slog.String("user_id", session.ShortID(userID)),
		slog.String("snippet_id", snippet.ID))
	h.sendJSON(w, snippet, http.StatusCreated)
}

// Update обрабатывает PATCH и PUT /api/snippets/{id}
// Отсутствующие поля не меняются, null очищает description и folderId
func (h *SnippetHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var update models.SnippetUpdate
	if !h.decode(w, r, &update) {
		return
	}

	snippet, err := h.store.UpdateSnippet(r.Context(), mux.Vars(r)["id"], update, userID)
	if err != nil {
		h.sendStorageError(w, r, "update snippet", userID, err)
		return
	}
	h.sendJSON(w, snippet, http.StatusOK)
}

// Delete обрабатывает DELETE /api/snippets/{id}
func (h *SnippetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteSnippet(r.Context(), mux.Vars(r)["id"], userID); err != nil {
		h.sendStorageError(w, r, "delete snippet", userID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
