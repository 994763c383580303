package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Field limits for user content.
const (
	MaxFolderNameLen    = 100
	MaxTitleLen         = 200
	MaxTriggerLen       = 100
	MaxDescriptionLen   = 1000
	MaxClipboardTypeLen = 32
	MinHistoryLimit     = 1
	MaxHistoryLimit     = 10000
)

// ValidateFolderName checks an already trimmed folder name.
func ValidateFolderName(name string) error {
	if name == "" {
		return fmt.Errorf("folder name is required")
	}
	if utf8.RuneCountInString(name) > MaxFolderNameLen {
		return fmt.Errorf("folder name must not exceed %d characters", MaxFolderNameLen)
	}
	return nil
}

// ValidateTitle checks a snippet title.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleLen)
	}
	return nil
}

// ValidateTrigger checks a snippet trigger. Triggers are typed by the user,
// so whitespace is not allowed.
func ValidateTrigger(trigger string) error {
	if trigger == "" {
		return fmt.Errorf("trigger is required")
	}
	if utf8.RuneCountInString(trigger) > MaxTriggerLen {
		return fmt.Errorf("trigger must not exceed %d characters", MaxTriggerLen)
	}
	if strings.IndexFunc(trigger, unicode.IsSpace) >= 0 {
		return fmt.Errorf("trigger must not contain whitespace")
	}
	return nil
}

// ValidateContent checks snippet or clipboard content.
func ValidateContent(content string) error {
	if content == "" {
		return fmt.Errorf("content is required")
	}
	return nil
}

// ValidateDescription checks an optional snippet description.
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLen {
		return fmt.Errorf("description must not exceed %d characters", MaxDescriptionLen)
	}
	return nil
}

// ValidateClipboardType checks the type tag of a clipboard item.
func ValidateClipboardType(itemType string) error {
	if len(itemType) > MaxClipboardTypeLen {
		return fmt.Errorf("type must not exceed %d characters", MaxClipboardTypeLen)
	}
	return nil
}

// ValidateHistoryLimit checks the clipboard history cap.
func ValidateHistoryLimit(limit int) error {
	if limit < MinHistoryLimit || limit > MaxHistoryLimit {
		return fmt.Errorf("history limit must be between %d and %d", MinHistoryLimit, MaxHistoryLimit)
	}
	return nil
}

// ValidateShortcut checks a keyboard shortcut string.
func ValidateShortcut(shortcut string) error {
	if strings.TrimSpace(shortcut) == "" {
		return fmt.Errorf("shortcut is required")
	}
	return nil
}

// ValidateTheme checks the UI theme name.
func ValidateTheme(theme string) error {
	switch theme {
	case "light", "dark", "system":
		return nil
	default:
		return fmt.Errorf("theme must be one of light, dark, system")
	}
}
