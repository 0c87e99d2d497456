package domain

import "time"

type DocumentID string

// Document is the persisted shape; concurrent saves are merged
// last-write-wins at the REST layer, never inside the presence core.
type Document struct {
	ID            DocumentID `json:"id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	OwnerID       UserID     `json:"ownerId"`
	Collaborators []UserID   `json:"collaborators"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
