// Package storetest is the behaviour suite every storage backend must pass.
//
//	func TestCompliance(t *testing.T) {
//		storetest.Run(t, func(t *testing.T, clock *storetest.Clock) storage.Store {
//			return memstore.New(storage.WithClock(clock.Now))
//		})
//	}
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/snipkeeper/internal/models"
	"github.com/iudanet/snipkeeper/internal/server/storage"
)

// Factory returns a fresh, empty store using clock. It registers its own cleanup.
type Factory func(t *testing.T, clock *Clock) storage.Store

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const (
	userA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	userB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

// Run executes the whole suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	suites := []struct {
		name string
		run  func(t *testing.T, newStore Factory)
	}{
		{"Folders", testFolders},
		{"Snippets", testSnippets},
		{"Clipboard", testClipboard},
		{"Settings", testSettings},
		{"Isolation", testIsolation},
		{"Remap", testRemap},
		{"Scenarios", testScenarios},
	}
	for _, s := range suites {
		t.Run(s.name, func(t *testing.T) {
			s.run(t, newStore)
		})
	}
}

func setup(t *testing.T, newStore Factory) (storage.Store, *Clock, context.Context) {
	t.Helper()
	clock := NewClock()
	return newStore(t, clock), clock, context.Background()
}

func strPtr(s string) *string {
	return &s
}

func mustFolder(t *testing.T, s storage.Store, name, userID string) *models.Folder {
	t.Helper()
	f, err := s.CreateFolder(context.Background(), name, userID)
	require.NoError(t, err)
	return f
}

func mustSnippet(t *testing.T, s storage.Store, trigger string, folderID *string, userID string) *models.Snippet {
	t.Helper()
	sn, err := s.CreateSnippet(context.Background(), models.SnippetInput{
		Title:    "title " + trigger,
		Content:  "content " + trigger,
		Trigger:  trigger,
		FolderID: folderID,
	}, userID)
	require.NoError(t, err)
	return sn
}

func general(t *testing.T, s storage.Store, userID string) *models.Folder {
	t.Helper()
	g, err := s.EnsureGeneralFolder(context.Background(), userID)
	require.NoError(t, err)
	return g
}

func folderNames(folders []*models.Folder) []string {
	names := make([]string, 0, len(folders))
	for _, f := range folders {
		names = append(names, f.Name)
	}
	return names
}

func clipboardContents(items []*models.ClipboardItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Content)
	}
	return out
}

func assertValidation(t *testing.T, err error, field string) {
	t.Helper()
	require.ErrorIs(t, err, storage.ErrValidation)
	var vErr *storage.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, field, vErr.Field)
}
