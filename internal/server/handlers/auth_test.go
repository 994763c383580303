package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/snipkeeper/internal/identity"
	"github.com/iudanet/snipkeeper/internal/server/session"
	"github.com/iudanet/snipkeeper/pkg/api"
)

func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

// failingSessionStore is a SessionStore whose Create always fails
type failingSessionStore struct {
	*session.Manager
}

func (f failingSessionStore) Create(string) (*session.Session, error) {
	return nil, errors.New("entropy exhausted")
}

func setupAuthHandler(t *testing.T) (*AuthHandler, *session.Manager) {
	t.Helper()
	manager := session.NewManager(session.Config{TTL: time.Hour, MaxPerUser: 2}, nil)
	deriver := identity.NewDeriver("test-secret", nil)
	return NewAuthHandler(setupTestLogger(), deriver, manager, false), manager
}

func postJSON(t *testing.T, target string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		body           any
		name           string
		wantMessage    string
		expectedStatus int
	}{
		{
			name:           "success",
			body:           api.LoginRequest{Pin: "1234", Passphrase: "correcthorse"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "pin too short",
			body:           api.LoginRequest{Pin: "12", Passphrase: "longenough"},
			expectedStatus: http.StatusBadRequest,
			wantMessage:    "PIN",
		},
		{
			name:           "passphrase too short",
			body:           api.LoginRequest{Pin: "1234", Passphrase: "short"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid json",
			body:           "{not json",
			expectedStatus: http.StatusBadRequest,
			wantMessage:    "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, manager := setupAuthHandler(t)

			var req *http.Request
			if s, ok := tt.body.(string); ok {
				req = httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(s))
			} else {
				req = postJSON(t, "/api/auth/login", tt.body)
			}
			w := httptest.NewRecorder()

			handler.Login(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			if tt.expectedStatus != http.StatusOK {
				resp := decodeBody[api.ErrorResponse](t, w)
				assert.Equal(t, http.StatusText(tt.expectedStatus), resp.Error)
				assert.Contains(t, resp.Message, tt.wantMessage)
				assert.Zero(t, manager.Count())
				return
			}

			resp := decodeBody[api.LoginResponse](t, w)
			assert.True(t, identity.IsUserID(resp.UserID))
			assert.Len(t, resp.SessionToken, 64)
			assert.False(t, resp.ExpiresAt.IsZero())

			sess, ok := manager.Get(resp.SessionToken)
			require.True(t, ok)
			assert.Equal(t, resp.UserID, sess.UserID)
		})
	}
}

func TestAuthHandler_Login_SameCredentialsSameUser(t *testing.T) {
	handler, _ := setupAuthHandler(t)
	body := api.LoginRequest{Pin: "4321", Passphrase: "my-passphrase"}

	ids := make([]string, 0, 2)
	for range 2 {
		w := httptest.NewRecorder()
		handler.Login(w, postJSON(t, "/api/auth/login", body))
		require.Equal(t, http.StatusOK, w.Code)
		ids = append(ids, decodeBody[api.LoginResponse](t, w).UserID)
	}

	assert.Equal(t, ids[0], ids[1])
}

func TestAuthHandler_Login_SessionError(t *testing.T) {
	manager := session.NewManager(session.Config{}, nil)
	handler := NewAuthHandler(setupTestLogger(), identity.NewDeriver("s", nil), failingSessionStore{manager}, false)

	w := httptest.NewRecorder()
	handler.Login(w, postJSON(t, "/api/auth/login", api.LoginRequest{Pin: "1234", Passphrase: "password1"}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeBody[api.ErrorResponse](t, w)
	assert.Equal(t, "internal server error", resp.Message)
}

func TestAuthHandler_Logout(t *testing.T) {
	tests := []struct {
		request func(token string) *http.Request
		name    string
		revoked bool
	}{
		{
			name: "token in body",
			request: func(token string) *http.Request {
				return postJSON(t, "/api/auth/logout", api.LogoutRequest{SessionToken: token})
			},
			revoked: true,
		},
		{
			name: "token in header",
			request: func(token string) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
				req.Header.Set(api.SessionTokenHeader, token)
				return req
			},
			revoked: true,
		},
		{
			name: "unknown token",
			request: func(string) *http.Request {
				return postJSON(t, "/api/auth/logout", api.LogoutRequest{SessionToken: strings.Repeat("f", 64)})
			},
		},
		{
			name: "no token at all",
			request: func(string) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
			},
		},
		{
			name: "garbage body",
			request: func(string) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/auth/logout", strings.NewReader("]["))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, manager := setupAuthHandler(t)
			sess, err := manager.Create(strings.Repeat("a", 32))
			require.NoError(t, err)

			w := httptest.NewRecorder()
			handler.Logout(w, tt.request(sess.Token))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.True(t, decodeBody[api.LogoutResponse](t, w).Success)

			_, ok := manager.Get(sess.Token)
			assert.Equal(t, !tt.revoked, ok)
		})
	}
}

func TestAuthHandler_LogoutAll(t *testing.T) {
	handler, manager := setupAuthHandler(t)
	userID := strings.Repeat("a", 32)
	other := strings.Repeat("b", 32)

	_, err := manager.Create(userID)
	require.NoError(t, err)
	_, err = manager.Create(userID)
	require.NoError(t, err)
	otherSess, err := manager.Create(other)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout-all", nil)
	req = req.WithContext(WithUserID(req.Context(), userID))
	w := httptest.NewRecorder()

	handler.LogoutAll(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decodeBody[api.LogoutAllResponse](t, w).Revoked)

	_, ok := manager.Get(otherSess.Token)
	assert.True(t, ok)
	assert.Equal(t, 1, manager.Count())
}

func TestAuthHandler_LogoutAll_Unauthenticated(t *testing.T) {
	handler, _ := setupAuthHandler(t)

	w := httptest.NewRecorder()
	handler.LogoutAll(w, httptest.NewRequest(http.MethodPost, "/api/auth/logout-all", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Verify(t *testing.T) {
	handler, manager := setupAuthHandler(t)
	userID := strings.Repeat("c", 32)
	sess, err := manager.Create(userID)
	require.NoError(t, err)

	tests := []struct {
		name           string
		token          string
		expectedStatus int
	}{
		{name: "valid token", token: sess.Token, expectedStatus: http.StatusOK},
		{name: "unknown token", token: strings.Repeat("0", 64), expectedStatus: http.StatusUnauthorized},
		{name: "missing header", token: "", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
			if tt.token != "" {
				req.Header.Set(api.SessionTokenHeader, tt.token)
			}
			w := httptest.NewRecorder()

			handler.Verify(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, userID, decodeBody[api.VerifyResponse](t, w).UserID)
			}
		})
	}
}
