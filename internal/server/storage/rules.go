package storage

import (
	"strings"
	"time"

	"github.com/iudanet/snipkeeper/internal/models"
	"github.com/iudanet/snipkeeper/internal/validation"
)

// Invariants shared by every backend.
const (
	// DuplicateWindow is how long an identical clipboard item is suppressed
	DuplicateWindow = 5 * time.Second

	// DefaultHistoryLimit caps clipboard history when settings carry no limit
	DefaultHistoryLimit = 100

	// LegacyUserID owns rows written before data was scoped per user
	LegacyUserID = "legacy"
)

// DefaultSettings returns the settings row created on first read.
func DefaultSettings() *models.Settings {
	return &models.Settings{
		ID:                models.SettingsID,
		SnippetShortcut:   "ctrl+;",
		ClipboardShortcut: "ctrl+shift+v",
		ClipboardEnabled:  true,
		HistoryLimit:      DefaultHistoryLimit,
		LaunchOnStartup:   false,
		Theme:             models.ThemeLight,
	}
}

// Timestamp normalises t to the precision every backend can store.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// IsReservedFolderName reports whether name collides with General, ignoring case.
func IsReservedFolderName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), models.GeneralFolderName)
}

// NormalizeFolderName trims name and checks it can be used for a new or
// renamed folder.
func NormalizeFolderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateFolderName(name); err != nil {
		return "", invalid("name", err)
	}
	if IsReservedFolderName(name) {
		return "", ErrReservedName
	}
	return name, nil
}

// FolderNotFound is the validation error for a snippet pointing at a folder
// the user does not own.
func FolderNotFound(folderID string) error {
	return NewValidationError("folderId", "Folder %q does not exist", folderID)
}

// NormalizeSnippetInput trims and validates a new snippet. An empty
// FolderID or Description is treated as absent.
func NormalizeSnippetInput(in models.SnippetInput) (models.SnippetInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Trigger = strings.TrimSpace(in.Trigger)

	if err := validation.ValidateTitle(in.Title); err != nil {
		return in, invalid("title", err)
	}
	if err := validation.ValidateTrigger(in.Trigger); err != nil {
		return in, invalid("trigger", err)
	}
	if err := validation.ValidateContent(in.Content); err != nil {
		return in, invalid("content", err)
	}
	if in.Description != nil {
		if *in.Description == "" {
			in.Description = nil
		} else if err := validation.ValidateDescription(*in.Description); err != nil {
			return in, invalid("description", err)
		}
	}
	if in.FolderID != nil && *in.FolderID == "" {
		in.FolderID = nil
	}
	return in, nil
}

// ApplySnippetUpdate validates u and applies it to s. The caller checks
// folder ownership and trigger uniqueness of the result.
func ApplySnippetUpdate(s *models.Snippet, u models.SnippetUpdate) error {
	if u.Title.Set {
		if u.Title.Null {
			return NewValidationError("title", "title cannot be null")
		}
		title := strings.TrimSpace(u.Title.Value)
		if err := validation.ValidateTitle(title); err != nil {
			return invalid("title", err)
		}
		s.Title = title
	}
	if u.Trigger.Set {
		if u.Trigger.Null {
			return NewValidationError("trigger", "trigger cannot be null")
		}
		trigger := strings.TrimSpace(u.Trigger.Value)
		if err := validation.ValidateTrigger(trigger); err != nil {
			return invalid("trigger", err)
		}
		s.Trigger = trigger
	}
	if u.Content.Set {
		if u.Content.Null {
			return NewValidationError("content", "content cannot be null")
		}
		if err := validation.ValidateContent(u.Content.Value); err != nil {
			return invalid("content", err)
		}
		s.Content = u.Content.Value
	}
	if u.Description.Set {
		if u.Description.Null || u.Description.Value == "" {
			s.Description = nil
		} else {
			if err := validation.ValidateDescription(u.Description.Value); err != nil {
				return invalid("description", err)
			}
			d := u.Description.Value
			s.Description = &d
		}
	}
	if u.FolderID.Set {
		if u.FolderID.Null || u.FolderID.Value == "" {
			s.FolderID = nil
		} else {
			id := u.FolderID.Value
			s.FolderID = &id
		}
	}
	return nil
}

// NormalizeClipboardInput validates a clipboard write and fills the default type.
func NormalizeClipboardInput(in models.ClipboardInput) (models.ClipboardInput, error) {
	in.Type = strings.TrimSpace(in.Type)
	if in.Type == "" {
		in.Type = models.DefaultClipboardType
	}
	if err := validation.ValidateContent(in.Content); err != nil {
		return in, invalid("content", err)
	}
	if err := validation.ValidateClipboardType(in.Type); err != nil {
		return in, invalid("type", err)
	}
	return in, nil
}

// DuplicateCutoff returns the instant after which an identical clipboard
// item counts as a duplicate.
func DuplicateCutoff(now time.Time) time.Time {
	return now.Add(-DuplicateWindow)
}

// IsRecentDuplicate reports whether item matches in and was created after cutoff.
func IsRecentDuplicate(item *models.ClipboardItem, in models.ClipboardInput, cutoff time.Time) bool {
	return item.Content == in.Content && item.Type == in.Type && item.CreatedAt.After(cutoff)
}

// HistoryLimit returns the clipboard cap configured in s.
func HistoryLimit(s *models.Settings) int {
	if s == nil || s.HistoryLimit <= 0 {
		return DefaultHistoryLimit
	}
	return s.HistoryLimit
}

// ApplySettingsUpdate validates u and applies it to s.
func ApplySettingsUpdate(s *models.Settings, u models.SettingsUpdate) error {
	if u.SnippetShortcut.Set {
		if u.SnippetShortcut.Null {
			return NewValidationError("snippetShortcut", "snippetShortcut cannot be null")
		}
		if err := validation.ValidateShortcut(u.SnippetShortcut.Value); err != nil {
			return invalid("snippetShortcut", err)
		}
		s.SnippetShortcut = u.SnippetShortcut.Value
	}
	if u.ClipboardShortcut.Set {
		if u.ClipboardShortcut.Null {
			return NewValidationError("clipboardShortcut", "clipboardShortcut cannot be null")
		}
		if err := validation.ValidateShortcut(u.ClipboardShortcut.Value); err != nil {
			return invalid("clipboardShortcut", err)
		}
		s.ClipboardShortcut = u.ClipboardShortcut.Value
	}
	if u.ClipboardEnabled.Set {
		if u.ClipboardEnabled.Null {
			return NewValidationError("clipboardEnabled", "clipboardEnabled cannot be null")
		}
		s.ClipboardEnabled = u.ClipboardEnabled.Value
	}
	if u.HistoryLimit.Set {
		if u.HistoryLimit.Null {
			return NewValidationError("historyLimit", "historyLimit cannot be null")
		}
		if err := validation.ValidateHistoryLimit(u.HistoryLimit.Value); err != nil {
			return invalid("historyLimit", err)
		}
		s.HistoryLimit = u.HistoryLimit.Value
	}
	if u.LaunchOnStartup.Set {
		if u.LaunchOnStartup.Null {
			return NewValidationError("launchOnStartup", "launchOnStartup cannot be null")
		}
		s.LaunchOnStartup = u.LaunchOnStartup.Value
	}
	if u.Theme.Set {
		if u.Theme.Null {
			return NewValidationError("theme", "theme cannot be null")
		}
		if err := validation.ValidateTheme(u.Theme.Value); err != nil {
			return invalid("theme", err)
		}
		s.Theme = u.Theme.Value
	}
	return nil
}

// CheckRemap validates the arguments of RemapUser.
func CheckRemap(fromUserID, toUserID string) error {
	if fromUserID == "" || toUserID == "" {
		return NewValidationError("userId", "both source and target user ids are required")
	}
	if fromUserID == toUserID {
		return NewValidationError("userId", "source and target user ids are the same")
	}
	return nil
}
