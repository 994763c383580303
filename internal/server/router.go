package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iudanet/snipkeeper/internal/server/handlers"
	"github.com/iudanet/snipkeeper/internal/server/middleware"
	"github.com/iudanet/snipkeeper/internal/server/storage"
	"github.com/iudanet/snipkeeper/pkg/api"
)

// RouterDeps are the collaborators of the HTTP router.
type RouterDeps struct {
	Logger       *slog.Logger
	Store        storage.Store
	Sessions     handlers.SessionStore
	Deriver      handlers.IdentityDeriver
	LoginLimiter *middleware.RateLimiter
	Version      string
	MaxBodyBytes int64
	DevMode      bool
}

// NewRouter registers every route under /api.
func NewRouter(d RouterDeps) http.Handler {
	logger := d.Logger

	auth := handlers.NewAuthHandler(logger, d.Deriver, d.Sessions, d.DevMode)
	health := handlers.NewHealthHandler(logger, d.Store, d.Sessions, d.Version)
	folders := handlers.NewFolderHandler(logger, d.Store, d.DevMode)
	snippets := handlers.NewSnippetHandler(logger, d.Store, d.DevMode)
	clipboard := handlers.NewClipboardHandler(logger, d.Store, d.DevMode)
	settings := handlers.NewSettingsHandler(logger, d.Store, d.DevMode)

	r := mux.NewRouter()
	r.NotFoundHandler = jsonStatus(http.StatusNotFound)
	r.MethodNotAllowedHandler = jsonStatus(http.StatusMethodNotAllowed)
	r.Use(
		middleware.RequestIDMiddleware(),
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingWithSkip(logger, []string{"/api/health"}),
		middleware.BodyLimitMiddleware(d.MaxBodyBytes),
	)

	// Без Subrouter: в нём несовпадение метода дает 404, а не 405

	// Публичные маршруты
	r.HandleFunc("/api/health", health.Health).Methods(http.MethodGet)
	r.Handle("/api/auth/login", middleware.RateLimitMiddleware(d.LoginLimiter)(http.HandlerFunc(auth.Login))).
		Methods(http.MethodPost)
	r.HandleFunc("/api/auth/logout", auth.Logout).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/verify", auth.Verify).Methods(http.MethodGet)

	// Маршруты, требующие сессии
	authed := middleware.AuthMiddleware(logger, d.Sessions, d.DevMode)
	handle := func(path string, h http.HandlerFunc, methods ...string) {
		r.Handle(path, authed(h)).Methods(methods...)
	}

	handle("/api/auth/logout-all", auth.LogoutAll, http.MethodPost)

	handle("/api/folders", folders.List, http.MethodGet)
	handle("/api/folders", folders.Create, http.MethodPost)
	handle("/api/folders/{id}", folders.Get, http.MethodGet)
	handle("/api/folders/{id}", folders.Rename, http.MethodPut)
	handle("/api/folders/{id}", folders.Delete, http.MethodDelete)

	handle("/api/snippets", snippets.List, http.MethodGet)
	handle("/api/snippets", snippets.Create, http.MethodPost)
	handle("/api/snippets/trigger/{trigger}", snippets.GetByTrigger, http.MethodGet)
	handle("/api/snippets/{id}", snippets.Get, http.MethodGet)
	handle("/api/snippets/{id}", snippets.Update, http.MethodPatch, http.MethodPut)
	handle("/api/snippets/{id}", snippets.Delete, http.MethodDelete)

	handle("/api/clipboard", clipboard.List, http.MethodGet)
	handle("/api/clipboard", clipboard.Create, http.MethodPost)
	handle("/api/clipboard", clipboard.Clear, http.MethodDelete)
	handle("/api/clipboard/{id}", clipboard.Delete, http.MethodDelete)

	handle("/api/settings", settings.Get, http.MethodGet)
	handle("/api/settings", settings.Update, http.MethodPut, http.MethodPatch)

	return r
}

// jsonStatus отвечает пустой ошибкой с кодом status
func jsonStatus(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: http.StatusText(status)})
	})
}
