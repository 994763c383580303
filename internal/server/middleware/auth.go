package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/snipkeeper/internal/identity"
	"github.com/iudanet/snipkeeper/internal/server/handlers"
	"github.com/iudanet/snipkeeper/internal/server/session"
	"github.com/iudanet/snipkeeper/pkg/api"
)

// AuthMiddleware создает middleware для проверки токена сессии.
// В dev mode без токена принимается заголовок user-id.
func AuthMiddleware(logger *slog.Logger, sessions handlers.SessionStore, devMode bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Сначала токен сессии
			if token := strings.TrimSpace(r.Header.Get(api.SessionTokenHeader)); token != "" {
				sess, ok := sessions.Get(token)
				if !ok {
					logger.WarnContext(ctx, "unknown or expired session token",
						slog.String("path", r.URL.Path))
					unauthorized(w)
					return
				}

				logger.DebugContext(ctx, "user authenticated",
					slog.String("user_id", session.ShortID(sess.UserID)))
				next.ServeHTTP(w, r.WithContext(handlers.WithUserID(ctx, sess.UserID)))
				return
			}

			// Сырой user-id только для разработки
			if devMode {
				if userID := strings.TrimSpace(r.Header.Get(api.UserIDHeader)); identity.IsUserID(userID) {
					logger.DebugContext(ctx, "user authenticated by raw id header",
						slog.String("user_id", session.ShortID(userID)))
					next.ServeHTTP(w, r.WithContext(handlers.WithUserID(ctx, userID)))
					return
				}
			}

			logger.WarnContext(ctx, "missing credentials", slog.String("path", r.URL.Path))
			unauthorized(w)
		})
	}
}

// unauthorized отправляет 401 в формате api.ErrorResponse
func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{
		Error:   "Unauthorized",
		Message: "Authentication required",
	})
}
