package models

import "time"

// GeneralFolderName is the name of the default folder every user owns.
const GeneralFolderName = "General"

// Folder groups snippets of a single user.
type Folder struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserID    string    `json:"userId"`
	SortOrder int       `json:"sortOrder"`
}

// IsGeneral reports whether f is the user's default folder.
func (f *Folder) IsGeneral() bool {
	return f.Name == GeneralFolderName
}

// Snippet is a piece of text expanded by its trigger.
type Snippet struct {
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Description *string   `json:"description"`
	FolderID    *string   `json:"folderId"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Trigger     string    `json:"trigger"`
	UserID      string    `json:"userId"`
}

// SnippetInput carries the fields of a new snippet.
type SnippetInput struct {
	Description *string `json:"description,omitempty"`
	FolderID    *string `json:"folderId,omitempty"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	Trigger     string  `json:"trigger"`
}

// SnippetUpdate is a partial update of a snippet. Title, Content and Trigger
// cannot be cleared; Description and FolderID can.
type SnippetUpdate struct {
	Title       Field[string] `json:"title,omitzero"`
	Content     Field[string] `json:"content,omitzero"`
	Trigger     Field[string] `json:"trigger,omitzero"`
	Description Field[string] `json:"description,omitzero"`
	FolderID    Field[string] `json:"folderId,omitzero"`
}
