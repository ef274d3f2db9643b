package models

import (
	"time"

	"github.com/google/uuid"
)

// Message roles. Digest artifacts are stored as assistant messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is an append-only chat entry in a room.
// IDs are ULIDs, so (created_at, id) ordering has a stable tie-break.
type Message struct {
	ID         string    `json:"id"` // ULID
	RoomID     uuid.UUID `json:"room_id"`
	Role       string    `json:"role"` // "user" or "assistant"
	Content    string    `json:"content"`
	AuthorName string    `json:"author_name,omitempty"` // empty for assistant messages
	CreatedAt  time.Time `json:"created_at"`
}
