package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/DenisLeme/pitchlab/internal/models"
)

// DataStore defines the interface for persistent storage of rooms, messages,
// ideas and tags. Both PostgresStore and SQLiteStore implement this interface.
// Lookups return (nil, nil) when the entity does not exist.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Room operations
	CreateRoom(ctx context.Context, name string) (*models.Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)

	// Message operations. CreateMessage fills in the ULID and timestamp.
	// ListMessages pages newest-first from the cursor message (exclusive);
	// ListRoomHistory returns the full history oldest-first.
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, roomID uuid.UUID, limit int, cursor string) ([]models.Message, error)
	ListRoomHistory(ctx context.Context, roomID uuid.UUID) ([]models.Message, error)
	LatestUserMessage(ctx context.Context, roomID uuid.UUID) (*models.Message, error)

	// Idea operations
	CreateIdea(ctx context.Context, idea *models.Idea) error
	GetIdea(ctx context.Context, id uuid.UUID) (*models.Idea, error)
	VoteIdea(ctx context.Context, id uuid.UUID, delta int) (*models.Idea, error)

	// Tag operations. UpsertTag and LinkMessageTag are idempotent: re-running
	// with the same inputs converges to the same state.
	UpsertTag(ctx context.Context, name string) (*models.Tag, error)
	LinkMessageTag(ctx context.Context, messageID string, tagID uuid.UUID) error
	ListRoomTags(ctx context.Context, roomID uuid.UUID) ([]models.TagCount, error)
	ListMessageTags(ctx context.Context, messageID string) ([]models.Tag, error)

	// Aggregates for the stats endpoint
	CountRooms(ctx context.Context) (int64, error)
	CountMessages(ctx context.Context) (int64, error)
	CountIdeas(ctx context.Context) (int64, error)
	TopIdeas(ctx context.Context, limit int) ([]models.Idea, error)
}
