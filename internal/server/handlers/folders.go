package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iudanet/snipkeeper/internal/server/session"
	"github.com/iudanet/snipkeeper/internal/server/storage"
	"github.com/iudanet/snipkeeper/pkg/api"
)

// FolderHandler обрабатывает запросы к папкам пользователя
type FolderHandler struct {
	store storage.FolderStorage
	responder
}

// NewFolderHandler создает handler для папок
func NewFolderHandler(logger *slog.Logger, store storage.FolderStorage, devMode bool) *FolderHandler {
	return &FolderHandler{
		responder: newResponder(logger, devMode),
		store:     store,
	}
}

// List обрабатывает GET /api/folders
func (h *FolderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	folders, err := h.store.ListFolders(r.Context(), userID)
	if err != nil {
		h.sendStorageError(w, r, "list folders", userID, err)
		return
	}
	h.sendJSON(w, folders, http.StatusOK)
}

// Get обрабатывает GET /api/folders/{id}
func (h *FolderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	folder, err := h.store.GetFolder(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		h.sendStorageError(w, r, "get folder", userID, err)
		return
	}
	h.sendJSON(w, folder, http.StatusOK)
}

// Create обрабатывает POST /api/folders
func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req api.FolderRequest
	if !h.decode(w, r, &req) {
		return
	}

	folder, err := h.store.CreateFolder(r.Context(), req.Name, userID)
	if err != nil {
		h.sendStorageError(w, r, "create folder", userID, err)
		return
	}

	h.logger.InfoContext(r.Context(), "folder created",
		slog.String("user_id", session.ShortID(userID)),
		slog.String("folder_id", folder.ID))
	h.sendJSON(w, folder, http.StatusCreated)
}

// Rename обрабатывает PUT /api/folders/{id}
func (h *FolderHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req api.FolderRequest
	if !h.decode(w, r, &req) {
		return
	}

	folder, err := h.store.RenameFolder(r.Context(), mux.Vars(r)["id"], req.Name, userID)
	if err != nil {
		h.sendStorageError(w, r, "rename folder", userID, err)
		return
	}
	h.sendJSON(w, folder, http.StatusOK)
}

// Delete обрабатывает DELETE /api/folders/{id}
// Сниппеты папки переносятся в General
func (h *FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.store.DeleteFolder(r.Context(), id, userID); err != nil {
		h.sendStorageError(w, r, "delete folder", userID, err)
		return
	}

	h.logger.InfoContext(r.Context(), "folder deleted",
		slog.String("user_id", session.ShortID(userID)),
		slog.String("folder_id", id))
	w.WriteHeader(http.StatusNoContent)
}
