package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/snipkeeper/internal/server/handlers"
	"github.com/iudanet/snipkeeper/internal/server/session"
	"github.com/iudanet/snipkeeper/pkg/api"
)

func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError,
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

// echoUser отвечает user_id из контекста
func echoUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := handlers.GetUserID(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	_, _ = w.Write([]byte(userID))
}

func TestAuthMiddleware(t *testing.T) {
	userID := strings.Repeat("a", 32)
	rawID := strings.Repeat("1", 32)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	manager := session.NewManager(session.Config{TTL: time.Hour}, nil, session.WithClock(func() time.Time { return now }))
	sess, err := manager.Create(userID)
	require.NoError(t, err)

	tests := []struct {
		headers      map[string]string
		name         string
		expectedUser string
		devMode      bool
	}{
		{
			name:         "valid session token",
			headers:      map[string]string{api.SessionTokenHeader: sess.Token},
			expectedUser: userID,
		},
		{
			name:    "unknown token",
			headers: map[string]string{api.SessionTokenHeader: strings.Repeat("0", 64)},
		},
		{
			name: "no credentials",
		},
		{
			name:    "raw user id outside dev mode",
			headers: map[string]string{api.UserIDHeader: rawID},
		},
		{
			name:         "raw user id in dev mode",
			headers:      map[string]string{api.UserIDHeader: rawID},
			devMode:      true,
			expectedUser: rawID,
		},
		{
			name:    "malformed raw user id in dev mode",
			headers: map[string]string{api.UserIDHeader: "legacy"},
			devMode: true,
		},
		{
			name:    "bad token is not rescued by raw id",
			headers: map[string]string{api.SessionTokenHeader: "nope", api.UserIDHeader: rawID},
			devMode: true,
		},
		{
			name:         "token wins over raw id",
			headers:      map[string]string{api.SessionTokenHeader: sess.Token, api.UserIDHeader: rawID},
			devMode:      true,
			expectedUser: userID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AuthMiddleware(setupTestLogger(), manager, tt.devMode)(http.HandlerFunc(echoUser))

			req := httptest.NewRequest(http.MethodGet, "/api/folders", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if tt.expectedUser != "" {
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Equal(t, tt.expectedUser, w.Body.String())
				return
			}

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var resp api.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, api.ErrorResponse{Error: "Unauthorized", Message: "Authentication required"}, resp)
		})
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	manager := session.NewManager(session.Config{TTL: time.Minute}, nil, session.WithClock(clock))

	sess, err := manager.Create(strings.Repeat("a", 32))
	require.NoError(t, err)

	handler := AuthMiddleware(setupTestLogger(), manager, false)(http.HandlerFunc(echoUser))

	now = now.Add(time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/api/snippets", nil)
	req.Header.Set(api.SessionTokenHeader, sess.Token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBodyLimitMiddleware(t *testing.T) {
	handler := BodyLimitMiddleware(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		_, err := r.Body.Read(buf)
		for err == nil {
			_, err = r.Body.Read(buf)
		}
		var maxErr *http.MaxBytesError
		if assert.ErrorAs(t, err, &maxErr) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
		}
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/clipboard", strings.NewReader(strings.Repeat("x", 100)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
