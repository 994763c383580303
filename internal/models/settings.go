package models

// SettingsID is the primary key of the single global settings row.
const SettingsID = 1

// Themes accepted by Settings.Theme.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Settings holds the application preferences. There is exactly one row.
type Settings struct {
	SnippetShortcut   string `json:"snippetShortcut"`
	ClipboardShortcut string `json:"clipboardShortcut"`
	Theme             string `json:"theme"`
	ID                int    `json:"id"`
	HistoryLimit      int    `json:"historyLimit"`
	ClipboardEnabled  bool   `json:"clipboardEnabled"`
	LaunchOnStartup   bool   `json:"launchOnStartup"`
}

// SettingsUpdate is a partial update of the settings row. None of the fields
// can be cleared, so an explicit null is rejected by validation.
type SettingsUpdate struct {
	SnippetShortcut   Field[string] `json:"snippetShortcut,omitzero"`
	ClipboardShortcut Field[string] `json:"clipboardShortcut,omitzero"`
	Theme             Field[string] `json:"theme,omitzero"`
	HistoryLimit      Field[int]    `json:"historyLimit,omitzero"`
	ClipboardEnabled  Field[bool]   `json:"clipboardEnabled,omitzero"`
	LaunchOnStartup   Field[bool]   `json:"launchOnStartup,omitzero"`
}
