package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/snipkeeper/internal/server/session"
	"github.com/iudanet/snipkeeper/internal/validation"
	"github.com/iudanet/snipkeeper/pkg/api"
)

// SessionStore хранит сессии. Реализуется session.Manager, может быть
// заменен на общий кеш при нескольких экземплярах сервера.
type SessionStore interface {
	Create(userID string) (*session.Session, error)
	Get(token string) (*session.Session, bool)
	Remove(token string) bool
	RemoveAll(userID string) int
	Count() int
}

// IdentityDeriver вычисляет идентификатор пользователя по учетным данным
type IdentityDeriver interface {
	Derive(pin, passphrase string) string
}

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	deriver  IdentityDeriver
	sessions SessionStore
	responder
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, deriver IdentityDeriver, sessions SessionStore, devMode bool) *AuthHandler {
	return &AuthHandler{
		responder: newResponder(logger, devMode),
		deriver:   deriver,
		sessions:  sessions,
	}
}

// Login обрабатывает POST /api/auth/login
// Вход по PIN и парольной фразе, регистрации нет
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	// Валидация учетных данных, сообщения показываются пользователю
	if err := validation.ValidateCredentials(req.Pin, req.Passphrase); err != nil {
		h.logger.WarnContext(ctx, "invalid credentials format", slog.Any("error", err))
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID := h.deriver.Derive(req.Pin, req.Passphrase)

	sess, err := h.sessions.Create(userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create session", slog.Any("error", err))
		h.sendError(w, internalErrorMessage, http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", session.ShortID(userID)))

	resp := api.LoginResponse{
		UserID:       userID,
		SessionToken: sess.Token,
		ExpiresAt:    sess.ExpiresAt,
	}
	h.sendJSON(w, resp, http.StatusOK)
}

// Logout обрабатывает POST /api/auth/logout
// Всегда успешен, даже для неизвестного или истекшего токена
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := strings.TrimSpace(r.Header.Get(api.SessionTokenHeader))
	if token == "" {
		// тело необязательно, ошибки разбора игнорируются
		var req api.LogoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = strings.TrimSpace(req.SessionToken)
		}
	}

	if token != "" && h.sessions.Remove(token) {
		h.logger.InfoContext(ctx, "session revoked")
	}

	h.sendJSON(w, api.LogoutResponse{Success: true}, http.StatusOK)
}

// LogoutAll обрабатывает POST /api/auth/logout-all
// Отзывает все сессии текущего пользователя
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	revoked := h.sessions.RemoveAll(userID)

	h.logger.InfoContext(r.Context(), "all sessions revoked",
		slog.String("user_id", session.ShortID(userID)),
		slog.Int("revoked", revoked))

	h.sendJSON(w, api.LogoutAllResponse{Revoked: revoked}, http.StatusOK)
}

// Verify обрабатывает GET /api/auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.Header.Get(api.SessionTokenHeader))
	if token == "" {
		h.sendError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	sess, ok := h.sessions.Get(token)
	if !ok {
		h.logger.WarnContext(r.Context(), "verify failed: unknown or expired session")
		h.sendError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	h.sendJSON(w, api.VerifyResponse{UserID: sess.UserID, ExpiresAt: sess.ExpiresAt}, http.StatusOK)
}
