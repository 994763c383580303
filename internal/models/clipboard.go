package models

import "time"

// DefaultClipboardType is used when an item is stored without a type.
const DefaultClipboardType = "text"

// ClipboardItem is one entry of a user's clipboard history.
type ClipboardItem struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	UserID    string    `json:"userId"`
}

// ClipboardInput carries the fields of a new clipboard item.
type ClipboardInput struct {
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}
