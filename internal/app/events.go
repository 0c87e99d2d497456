package app

import (
	"encoding/json"

	"github.com/dkeye/Pages/internal/domain"
)

const (
	EventUserJoined      = "user-joined"
	EventUserLeft        = "user-left"
	EventDocumentUpdated = "document-updated"
	EventCursorPosition  = "cursor-position"
)

// RosterEvent carries the full participant list, in join order.
// Sent under "user-joined" and "user-left".
type RosterEvent struct {
	Type       string            `json:"type"`
	DocumentID domain.DocumentID `json:"documentId"`
	Users      []domain.User     `json:"users"`
}

// Change is the pass-through body of a document-change event. UserID is
// whatever the sender claimed; it is forwarded unverified.
type Change struct {
	Content string        `json:"content"`
	Title   string        `json:"title"`
	UserID  domain.UserID `json:"userId"`
}

type DocumentUpdatedEvent struct {
	Type       string            `json:"type"`
	DocumentID domain.DocumentID `json:"documentId"`
	Content    string            `json:"content"`
	Title      string            `json:"title"`
	UserID     domain.UserID     `json:"userId"`
}

// CursorEvent carries a cursor move. User is the sender's registry
// identity; null when the sender already disconnected.
type CursorEvent struct {
	Type       string            `json:"type"`
	DocumentID domain.DocumentID `json:"documentId"`
	Position   json.RawMessage   `json:"position"`
	UserID     domain.UserID     `json:"userId"`
	User       *domain.User      `json:"user"`
}
