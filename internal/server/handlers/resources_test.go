package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/snipkeeper/internal/models"
	"github.com/iudanet/snipkeeper/internal/server/storage"
	"github.com/iudanet/snipkeeper/internal/server/storage/memstore"
	"github.com/iudanet/snipkeeper/pkg/api"
)

var (
	testUser  = strings.Repeat("a", 32)
	otherUser = strings.Repeat("b", 32)
)

type call struct {
	vars   map[string]string
	body   any
	method string
	user   string
}

// serve runs fn the way the router would after auth middleware
func serve(t *testing.T, fn http.HandlerFunc, c call) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	switch b := c.body.(type) {
	case nil:
	case string:
		body = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(c.method, "/", body)
	if c.user != "" {
		req = req.WithContext(WithUserID(req.Context(), c.user))
	}
	if c.vars != nil {
		req = mux.SetURLVars(req, c.vars)
	}

	w := httptest.NewRecorder()
	fn(w, req)
	return w
}

func TestFolderHandler(t *testing.T) {
	store := memstore.New()
	h := NewFolderHandler(setupTestLogger(), store, false)

	w := serve(t, h.Create, call{method: http.MethodPost, user: testUser, body: api.FolderRequest{Name: "  Work "}})
	require.Equal(t, http.StatusCreated, w.Code)
	work := decodeBody[models.Folder](t, w)
	assert.Equal(t, "Work", work.Name)
	assert.Equal(t, testUser, work.UserID)

	w = serve(t, h.List, call{method: http.MethodGet, user: testUser})
	require.Equal(t, http.StatusOK, w.Code)
	folders := decodeBody[[]models.Folder](t, w)
	require.Len(t, folders, 2)
	assert.Equal(t, models.GeneralFolderName, folders[0].Name)
	assert.Equal(t, "Work", folders[1].Name)

	tests := []struct {
		call           call
		fn             http.HandlerFunc
		name           string
		expectedStatus int
	}{
		{
			name:           "duplicate name",
			fn:             h.Create,
			call:           call{method: http.MethodPost, user: testUser, body: api.FolderRequest{Name: "Work"}},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "reserved name",
			fn:             h.Create,
			call:           call{method: http.MethodPost, user: testUser, body: api.FolderRequest{Name: "general"}},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "empty name",
			fn:             h.Create,
			call:           call{method: http.MethodPost, user: testUser, body: api.FolderRequest{Name: "   "}},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid body",
			fn:             h.Create,
			call:           call{method: http.MethodPost, user: testUser, body: "{"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "rename general",
			fn:             h.Rename,
			call:           call{method: http.MethodPut, user: testUser, vars: map[string]string{"id": folders[0].ID}, body: api.FolderRequest{Name: "Main"}},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "delete general",
			fn:             h.Delete,
			call:           call{method: http.MethodDelete, user: testUser, vars: map[string]string{"id": folders[0].ID}},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "foreign folder",
			fn:             h.Get,
			call:           call{method: http.MethodGet, user: otherUser, vars: map[string]string{"id": work.ID}},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "unauthenticated",
			fn:             h.List,
			call:           call{method: http.MethodGet},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "rename",
			fn:             h.Rename,
			call:           call{method: http.MethodPut, user: testUser, vars: map[string]string{"id": work.ID}, body: api.FolderRequest{Name: "Job"}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "delete",
			fn:             h.Delete,
			call:           call{method: http.MethodDelete, user: testUser, vars: map[string]string{"id": work.ID}},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "delete again",
			fn:             h.Delete,
			call:           call{method: http.MethodDelete, user: testUser, vars: map[string]string{"id": work.ID}},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, tt.fn, tt.call)
			assert.Equal(t, tt.expectedStatus, w.Code)
			if w.Code >= http.StatusBadRequest {
				resp := decodeBody[api.ErrorResponse](t, w)
				assert.Equal(t, http.StatusText(tt.expectedStatus), resp.Error)
				assert.NotEmpty(t, resp.Message)
			}
		})
	}
}

func TestSnippetHandler(t *testing.T) {
	store := memstore.New()
	folders := NewFolderHandler(setupTestLogger(), store, false)
	h := NewSnippetHandler(setupTestLogger(), store, false)

	w := serve(t, folders.Create, call{method: http.MethodPost, user: testUser, body: api.FolderRequest{Name: "Mail"}})
	require.Equal(t, http.StatusCreated, w.Code)
	mail := decodeBody[models.Folder](t, w)

	w = serve(t, h.Create, call{method: http.MethodPost, user: testUser, body: map[string]any{
		"title":       "Signature",
		"content":     "Best regards",
		"trigger":     ";sig",
		"description": "footer",
		"folderId":    mail.ID,
	}})
	require.Equal(t, http.StatusCreated, w.Code)
	sig := decodeBody[models.Snippet](t, w)
	require.NotNil(t, sig.FolderID)
	assert.Equal(t, mail.ID, *sig.FolderID)

	t.Run("duplicate trigger", func(t *testing.T) {
		w := serve(t, h.Create, call{method: http.MethodPost, user: testUser, body: models.SnippetInput{
			Title: "Other", Content: "x", Trigger: ";sig",
		}})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, storage.ErrDuplicateTrigger.Error(), decodeBody[api.ErrorResponse](t, w).Message)
	})

	t.Run("same trigger for another user", func(t *testing.T) {
		w := serve(t, h.Create, call{method: http.MethodPost, user: otherUser, body: models.SnippetInput{
			Title: "Other", Content: "x", Trigger: ";sig",
		}})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("foreign folder", func(t *testing.T) {
		w := serve(t, h.Create, call{method: http.MethodPost, user: otherUser, body: models.SnippetInput{
			Title: "T", Content: "x", Trigger: ";t", FolderID: &mail.ID,
		}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeBody[api.ErrorResponse](t, w).Message, mail.ID)
	})

	t.Run("by trigger", func(t *testing.T) {
		w := serve(t, h.GetByTrigger, call{method: http.MethodGet, user: testUser, vars: map[string]string{"trigger": ";sig"}})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, sig.ID, decodeBody[models.Snippet](t, w).ID)

		w = serve(t, h.GetByTrigger, call{method: http.MethodGet, user: testUser, vars: map[string]string{"trigger": ";nope"}})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("patch clears description and keeps the rest", func(t *testing.T) {
		w := serve(t, h.Update, call{
			method: http.MethodPatch,
			user:   testUser,
			vars:   map[string]string{"id": sig.ID},
			body:   `{"description": null, "content": "Cheers"}`,
		})
		require.Equal(t, http.StatusOK, w.Code)
		got := decodeBody[models.Snippet](t, w)
		assert.Nil(t, got.Description)
		assert.Equal(t, "Cheers", got.Content)
		assert.Equal(t, "Signature", got.Title)
		require.NotNil(t, got.FolderID)
		assert.Equal(t, mail.ID, *got.FolderID)
	})

	t.Run("null title rejected", func(t *testing.T) {
		w := serve(t, h.Update, call{
			method: http.MethodPut,
			user:   testUser,
			vars:   map[string]string{"id": sig.ID},
			body:   `{"title": null}`,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("list is scoped to the user", func(t *testing.T) {
		w := serve(t, h.List, call{method: http.MethodGet, user: testUser})
		require.Equal(t, http.StatusOK, w.Code)
		list := decodeBody[[]models.Snippet](t, w)
		require.Len(t, list, 1)
		assert.Equal(t, testUser, list[0].UserID)
	})

	t.Run("delete", func(t *testing.T) {
		w := serve(t, h.Delete, call{method: http.MethodDelete, user: otherUser, vars: map[string]string{"id": sig.ID}})
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = serve(t, h.Delete, call{method: http.MethodDelete, user: testUser, vars: map[string]string{"id": sig.ID}})
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = serve(t, h.Get, call{method: http.MethodGet, user: testUser, vars: map[string]string{"id": sig.ID}})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestClipboardHandler(t *testing.T) {
	store := memstore.New()
	h := NewClipboardHandler(setupTestLogger(), store, false)

	w := serve(t, h.Create, call{method: http.MethodPost, user: testUser, body: models.ClipboardInput{Content: "hello"}})
	require.Equal(t, http.StatusCreated, w.Code)
	first := decodeBody[models.ClipboardItem](t, w)
	assert.Equal(t, models.DefaultClipboardType, first.Type)

	// повтор сразу же возвращает ту же запись
	w = serve(t, h.Create, call{method: http.MethodPost, user: testUser, body: models.ClipboardInput{Content: "hello"}})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, first.ID, decodeBody[models.ClipboardItem](t, w).ID)

	w = serve(t, h.Create, call{method: http.MethodPost, user: testUser, body: models.ClipboardInput{Content: ""}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, h.Create, call{method: http.MethodPost, user: testUser, body: models.ClipboardInput{Content: "world", Type: "url"}})
	require.Equal(t, http.StatusCreated, w.Code)
	second := decodeBody[models.ClipboardItem](t, w)

	w = serve(t, h.List, call{method: http.MethodGet, user: testUser})
	require.Equal(t, http.StatusOK, w.Code)
	items := decodeBody[[]models.ClipboardItem](t, w)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)

	w = serve(t, h.Delete, call{method: http.MethodDelete, user: otherUser, vars: map[string]string{"id": first.ID}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(t, h.Delete, call{method: http.MethodDelete, user: testUser, vars: map[string]string{"id": first.ID}})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(t, h.Clear, call{method: http.MethodDelete, user: testUser})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeBody[api.ClearResponse](t, w).Removed)

	w = serve(t, h.List, call{method: http.MethodGet, user: testUser})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody[[]models.ClipboardItem](t, w))
}

func TestSettingsHandler(t *testing.T) {
	store := memstore.New()
	h := NewSettingsHandler(setupTestLogger(), store, false)

	w := serve(t, h.Get, call{method: http.MethodGet, user: testUser})
	require.Equal(t, http.StatusOK, w.Code)
	defaults := decodeBody[models.Settings](t, w)
	assert.Equal(t, *storage.DefaultSettings(), defaults)

	tests := []struct {
		check          func(t *testing.T, s models.Settings)
		body           string
		name           string
		expectedStatus int
	}{
		{
			name:           "partial update",
			body:           `{"theme": "dark", "historyLimit": 50}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, s models.Settings) {
				assert.Equal(t, models.ThemeDark, s.Theme)
				assert.Equal(t, 50, s.HistoryLimit)
				assert.Equal(t, defaults.SnippetShortcut, s.SnippetShortcut)
			},
		},
		{
			name:           "bad theme",
			body:           `{"theme": "neon"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "limit out of range",
			body:           `{"historyLimit": 0}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "null shortcut",
			body:           `{"snippetShortcut": null}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, h.Update, call{method: http.MethodPatch, user: testUser, body: tt.body})
			require.Equal(t, tt.expectedStatus, w.Code)
			if tt.check != nil {
				tt.check(t, decodeBody[models.Settings](t, w))
			}
		})
	}
}

// brokenStore fails every folder call with a backend error
type brokenStore struct {
	storage.FolderStorage
}

func (brokenStore) ListFolders(context.Context, string) ([]*models.Folder, error) {
	return nil, storage.Unavailable("list folders", errors.New("disk on fire"))
}

func TestSendStorageError_HidesInternalsOutsideDevMode(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		devMode bool
	}{
		{name: "production", devMode: false, want: "internal server error"},
		{name: "dev mode", devMode: true, want: "disk on fire"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewFolderHandler(setupTestLogger(), brokenStore{}, tt.devMode)

			w := serve(t, h.List, call{method: http.MethodGet, user: testUser})

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Contains(t, decodeBody[api.ErrorResponse](t, w).Message, tt.want)
		})
	}
}

func TestDecode_BodyTooLarge(t *testing.T) {
	h := NewFolderHandler(setupTestLogger(), memstore.New(), false)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("x", 100)+`"}`))
	req = req.WithContext(WithUserID(req.Context(), testUser))
	w := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(w, req.Body, 16)

	h.Create(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want int
	}{
		{name: "validation", err: storage.NewValidationError("name", "bad"), want: http.StatusBadRequest},
		{name: "not found", err: storage.ErrNotFound, want: http.StatusNotFound},
		{name: "duplicate name", err: storage.ErrDuplicateName, want: http.StatusConflict},
		{name: "duplicate trigger", err: storage.ErrDuplicateTrigger, want: http.StatusConflict},
		{name: "reserved", err: storage.ErrReservedName, want: http.StatusConflict},
		{name: "rename general", err: storage.ErrRenameGeneral, want: http.StatusConflict},
		{name: "delete general", err: storage.ErrReservedFolder, want: http.StatusConflict},
		{name: "unavailable", err: storage.Unavailable("op", errors.New("x")), want: http.StatusInternalServerError},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
