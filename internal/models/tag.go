package models

import "github.com/google/uuid"

// Tag is a globally unique topical label. Names are stored lowercased
// and trimmed; uniqueness is enforced on the normalized form.
type Tag struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// TagCount is one row of a room's aggregated tag view: a tag plus the
// number of distinct messages in the room linked to it.
type TagCount struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Uses int64     `json:"uses"`
}
