package models

import (
	"time"

	"github.com/google/uuid"
)

// Idea is a proposed idea inside a room. Score only moves through votes.
type Idea struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	Content   string    `json:"content"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}
