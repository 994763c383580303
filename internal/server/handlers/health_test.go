package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/snipkeeper/internal/server/session"
	"github.com/iudanet/snipkeeper/internal/server/storage/memstore"
	"github.com/iudanet/snipkeeper/pkg/api"
)

func TestHealthHandler_Health(t *testing.T) {
	logger := setupTestLogger()
	store := memstore.New()
	sessions := session.NewManager(session.Config{}, nil)
	_, err := sessions.Create("user-1")
	require.NoError(t, err)

	handler := NewHealthHandler(logger, store, sessions, "1.2.3")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	handler.Health(w, req)

	resp := w.Result()
	defer func() {
		err := resp.Body.Close()
		assert.NoError(t, err)
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	healthResp := decodeBody[api.HealthResponse](t, w)
	assert.Equal(t, "ok", healthResp.Status)
	assert.Equal(t, "ok", healthResp.Storage)
	assert.Equal(t, "1.2.3", healthResp.Version)
	assert.Equal(t, 1, healthResp.Sessions)
}

func TestHealthHandler_StorageDown(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.Close())

	handler := NewHealthHandler(setupTestLogger(), store, session.NewManager(session.Config{}, nil), "dev")

	w := httptest.NewRecorder()
	handler.Health(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	healthResp := decodeBody[api.HealthResponse](t, w)
	assert.Equal(t, "degraded", healthResp.Status)
	assert.Equal(t, "unavailable", healthResp.Storage)
}
