package storage

import (
	"context"
	"time"

	"github.com/iudanet/snipkeeper/internal/models"
)

// FolderStorage defines user-scoped folder persistence
type FolderStorage interface {
	// ListFolders returns the user's folders ordered by sort order then name.
	// The General folder is created first if missing.
	ListFolders(ctx context.Context, userID string) ([]*models.Folder, error)

	// GetFolder returns ErrNotFound if the folder does not exist or is not owned by userID
	GetFolder(ctx context.Context, id, userID string) (*models.Folder, error)

	// CreateFolder rejects "General" (any case) with ErrReservedName and
	// an existing name with ErrDuplicateName
	CreateFolder(ctx context.Context, name, userID string) (*models.Folder, error)

	// RenameFolder applies the CreateFolder rules and refuses to rename General
	RenameFolder(ctx context.Context, id, name, userID string) (*models.Folder, error)

	// DeleteFolder moves the folder's snippets to General, then removes the folder.
	// Deleting General fails with ErrReservedFolder.
	DeleteFolder(ctx context.Context, id, userID string) error

	// EnsureGeneralFolder returns the user's General folder, creating it if needed
	EnsureGeneralFolder(ctx context.Context, userID string) (*models.Folder, error)
}

// SnippetStorage defines user-scoped snippet persistence
type SnippetStorage interface {
	ListSnippets(ctx context.Context, userID string) ([]*models.Snippet, error)
	GetSnippet(ctx context.Context, id, userID string) (*models.Snippet, error)
	GetSnippetByTrigger(ctx context.Context, trigger, userID string) (*models.Snippet, error)

	// CreateSnippet fails with a ValidationError when FolderID does not name
	// one of the user's folders and with ErrDuplicateTrigger on a trigger clash
	CreateSnippet(ctx context.Context, input models.SnippetInput, userID string) (*models.Snippet, error)
	UpdateSnippet(ctx context.Context, id string, update models.SnippetUpdate, userID string) (*models.Snippet, error)
	DeleteSnippet(ctx context.Context, id, userID string) error
}

// ClipboardStorage defines user-scoped clipboard history persistence
type ClipboardStorage interface {
	// ListClipboardItems returns the history newest first
	ListClipboardItems(ctx context.Context, userID string) ([]*models.ClipboardItem, error)

	// CreateClipboardItem returns the existing item when an identical one was
	// stored within DuplicateWindow, and trims history to Settings.HistoryLimit
	CreateClipboardItem(ctx context.Context, input models.ClipboardInput, userID string) (*models.ClipboardItem, error)
	DeleteClipboardItem(ctx context.Context, id, userID string) error

	// ClearClipboardHistory returns the number of removed items
	ClearClipboardHistory(ctx context.Context, userID string) (int, error)
}

// SettingsStorage defines the single global settings row
type SettingsStorage interface {
	// GetSettings creates the row with DefaultSettings on first read
	GetSettings(ctx context.Context) (*models.Settings, error)
	UpdateSettings(ctx context.Context, update models.SettingsUpdate) (*models.Settings, error)
}

// RemapResult reports what RemapUser moved.
type RemapResult struct {
	Folders        int `json:"folders"`
	Snippets       int `json:"snippets"`
	ClipboardItems int `json:"clipboardItems"`
}

// Store is the contract every backend satisfies.
type Store interface {
	FolderStorage
	SnippetStorage
	ClipboardStorage
	SettingsStorage

	// RemapUser moves all data of fromUserID to toUserID. It is the explicit
	// path for a server secret rotation and never guesses identities.
	RemapUser(ctx context.Context, fromUserID, toUserID string) (*RemapResult, error)

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error

	Close() error
}

// Options holds settings shared by all backends.
type Options struct {
	Now func() time.Time
}

// Option configures a backend.
type Option func(*Options)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

// ApplyOptions resolves opts over the defaults.
func ApplyOptions(opts []Option) Options {
	o := Options{Now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
