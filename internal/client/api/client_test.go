package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/snipkeeper/pkg/api"
)

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

func TestClient_Login(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req api.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, api.LoginRequest{Pin: "1234", Passphrase: "password123"}, req)

		_ = json.NewEncoder(w).Encode(api.LoginResponse{UserID: "u1", SessionToken: "tok"})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).Login(context.Background(), api.LoginRequest{Pin: "1234", Passphrase: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.UserID)
	assert.Equal(t, "tok", resp.SessionToken)
}

func TestClient_Verify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(api.SessionTokenHeader) != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "Unauthorized", Message: "Invalid or expired session"})
			return
		}
		_ = json.NewEncoder(w).Encode(api.VerifyResponse{UserID: "u1"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	resp, err := client.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.UserID)

	_, err = client.Verify(context.Background(), "bad")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Contains(t, err.Error(), "Invalid or expired session")
}

func TestClient_Logout(t *testing.T) {
	var got api.LogoutRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/logout", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(api.LogoutResponse{Success: true})
	}))
	defer server.Close()

	require.NoError(t, NewClient(server.URL).Logout(context.Background(), "tok"))
	assert.Equal(t, "tok", got.SessionToken)
}

func TestClient_Health(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus string
		wantErr    string
	}{
		{
			name:       "ok",
			status:     http.StatusOK,
			body:       `{"status":"ok","storage":"ok","sessions":2}`,
			wantStatus: "ok",
		},
		{
			name:       "degraded is still an answer",
			status:     http.StatusServiceUnavailable,
			body:       `{"status":"degraded","storage":"unavailable","sessions":0}`,
			wantStatus: "degraded",
		},
		{
			name:    "plain text error",
			status:  http.StatusBadGateway,
			body:    "upstream down",
			wantErr: "server error (502): upstream down",
		},
		{
			name:    "empty error body",
			status:  http.StatusInternalServerError,
			wantErr: "server error (500): Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/health", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			resp, err := NewClient(server.URL).Health(context.Background())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.Status)
		})
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(server.URL).Health(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
