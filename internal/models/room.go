package models

import (
	"time"

	"github.com/google/uuid"
)

// Room is a collaborative ideation space. Rooms are immutable once created;
// messages and ideas reference them by ID.
type Room struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
