package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/DenisLeme/pitchlab/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	store := &PostgresStore{pool: pool}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		room_id UUID NOT NULL REFERENCES rooms(id),
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		author_name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS ideas (
		id UUID PRIMARY KEY,
		room_id UUID NOT NULL REFERENCES rooms(id),
		content TEXT NOT NULL,
		score INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS tags (
		id UUID PRIMARY KEY,
		name TEXT UNIQUE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS message_tags (
		message_id TEXT NOT NULL REFERENCES messages(id),
		tag_id UUID NOT NULL REFERENCES tags(id),
		PRIMARY KEY (message_id, tag_id)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages(room_id, created_at, id);
	CREATE INDEX IF NOT EXISTS idx_ideas_room ON ideas(room_id);
	CREATE INDEX IF NOT EXISTS idx_message_tags_tag ON message_tags(tag_id);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateRoom creates a new room.
func (s *PostgresStore) CreateRoom(ctx context.Context, name string) (*models.Room, error) {
	room := &models.Room{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO rooms (id, name) VALUES ($1, $2)
		RETURNING id, name, created_at
	`, uuid.New(), name).Scan(&room.ID, &room.Name, &room.CreatedAt)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// GetRoom retrieves a room by ID.
func (s *PostgresStore) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	room := &models.Room{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, created_at FROM rooms WHERE id = $1
	`, id).Scan(&room.ID, &room.Name, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

// ListRooms retrieves all rooms, newest first.
func (s *PostgresStore) ListRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, created_at FROM rooms ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		var room models.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// CreateMessage stores a message, generating its ULID and timestamp.
func (s *PostgresStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, room_id, role, content, author_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.RoomID, msg.Role, msg.Content, msg.AuthorName, msg.CreatedAt)
	return err
}

// ListMessages retrieves up to limit messages newest-first, starting after
// the cursor message when one is given.
func (s *PostgresStore) ListMessages(ctx context.Context, roomID uuid.UUID, limit int, cursor string) ([]models.Message, error) {
	var rows pgx.Rows
	var err error

	if cursor != "" {
		var cursorAt time.Time
		err = s.pool.QueryRow(ctx, `
			SELECT created_at FROM messages WHERE id = $1
		`, cursor).Scan(&cursorAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil
			}
			return nil, err
		}
		rows, err = s.pool.Query(ctx, `
			SELECT id, room_id, role, content, author_name, created_at
			FROM messages
			WHERE room_id = $1 AND (created_at, id) < ($2, $3)
			ORDER BY created_at DESC, id DESC
			LIMIT $4
		`, roomID, cursorAt, cursor, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, room_id, role, content, author_name, created_at
			FROM messages
			WHERE room_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`, roomID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessagesPG(rows)
}

// ListRoomHistory retrieves the full message history of a room, oldest first.
func (s *PostgresStore) ListRoomHistory(ctx context.Context, roomID uuid.UUID) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, room_id, role, content, author_name, created_at
		FROM messages
		WHERE room_id = $1
		ORDER BY created_at ASC, id ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessagesPG(rows)
}

// LatestUserMessage retrieves the most recent user-authored message in a room.
func (s *PostgresStore) LatestUserMessage(ctx context.Context, roomID uuid.UUID) (*models.Message, error) {
	var msg models.Message
	err := s.pool.QueryRow(ctx, `
		SELECT id, room_id, role, content, author_name, created_at
		FROM messages
		WHERE room_id = $1 AND role = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, roomID, models.RoleUser).Scan(
		&msg.ID, &msg.RoomID, &msg.Role, &msg.Content, &msg.AuthorName, &msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// CreateIdea stores a new idea with score zero.
func (s *PostgresStore) CreateIdea(ctx context.Context, idea *models.Idea) error {
	if idea.ID == uuid.Nil {
		idea.ID = uuid.New()
	}

	return s.pool.QueryRow(ctx, `
		INSERT INTO ideas (id, room_id, content) VALUES ($1, $2, $3)
		RETURNING created_at
	`, idea.ID, idea.RoomID, idea.Content).Scan(&idea.CreatedAt)
}

// GetIdea retrieves an idea by ID.
func (s *PostgresStore) GetIdea(ctx context.Context, id uuid.UUID) (*models.Idea, error) {
	idea := &models.Idea{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, room_id, content, score, created_at FROM ideas WHERE id = $1
	`, id).Scan(&idea.ID, &idea.RoomID, &idea.Content, &idea.Score, &idea.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return idea, nil
}

// VoteIdea adjusts an idea's score and returns the updated idea.
// Returns (nil, nil) if the idea does not exist.
func (s *PostgresStore) VoteIdea(ctx context.Context, id uuid.UUID, delta int) (*models.Idea, error) {
	idea := &models.Idea{}
	err := s.pool.QueryRow(ctx, `
		UPDATE ideas SET score = score + $1 WHERE id = $2
		RETURNING id, room_id, content, score, created_at
	`, delta, id).Scan(&idea.ID, &idea.RoomID, &idea.Content, &idea.Score, &idea.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return idea, nil
}

// UpsertTag creates a tag if absent and returns the stored tag.
// Names are lowercased and trimmed before storage.
func (s *PostgresStore) UpsertTag(ctx context.Context, name string) (*models.Tag, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	_, err := s.pool.Exec(ctx, `
		INSERT INTO tags (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`, uuid.New(), name)
	if err != nil {
		return nil, err
	}

	tag := &models.Tag{}
	err = s.pool.QueryRow(ctx, `
		SELECT id, name FROM tags WHERE name = $1
	`, name).Scan(&tag.ID, &tag.Name)
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// LinkMessageTag associates a tag with a message. No-op if the link exists.
func (s *PostgresStore) LinkMessageTag(ctx context.Context, messageID string, tagID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO message_tags (message_id, tag_id) VALUES ($1, $2)
		ON CONFLICT (message_id, tag_id) DO NOTHING
	`, messageID, tagID)
	return err
}

// ListRoomTags returns every tag referenced by a message in the room with its
// usage count, ordered by usage descending then name ascending.
func (s *PostgresStore) ListRoomTags(ctx context.Context, roomID uuid.UUID) ([]models.TagCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.name, COUNT(mt.message_id) AS uses
		FROM tags t
		JOIN message_tags mt ON mt.tag_id = t.id
		JOIN messages m ON m.id = mt.message_id
		WHERE m.room_id = $1
		GROUP BY t.id, t.name
		ORDER BY uses DESC, t.name ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.TagCount
	for rows.Next() {
		var tc models.TagCount
		if err := rows.Scan(&tc.ID, &tc.Name, &tc.Uses); err != nil {
			return nil, err
		}
		counts = append(counts, tc)
	}
	return counts, rows.Err()
}

// ListMessageTags returns the tags linked to a message, by name.
func (s *PostgresStore) ListMessageTags(ctx context.Context, messageID string) ([]models.Tag, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.name
		FROM tags t
		JOIN message_tags mt ON mt.tag_id = t.id
		WHERE mt.message_id = $1
		ORDER BY t.name ASC
	`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// CountRooms returns the total number of rooms.
func (s *PostgresStore) CountRooms(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&count)
	return count, err
}

// CountMessages returns the total number of messages.
func (s *PostgresStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

// CountIdeas returns the total number of ideas.
func (s *PostgresStore) CountIdeas(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ideas`).Scan(&count)
	return count, err
}

// TopIdeas returns the highest-scored ideas across all rooms.
func (s *PostgresStore) TopIdeas(ctx context.Context, limit int) ([]models.Idea, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, room_id, content, score, created_at
		FROM ideas
		ORDER BY score DESC, created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ideas []models.Idea
	for rows.Next() {
		var idea models.Idea
		if err := rows.Scan(&idea.ID, &idea.RoomID, &idea.Content, &idea.Score, &idea.CreatedAt); err != nil {
			return nil, err
		}
		ideas = append(ideas, idea)
	}
	return ideas, rows.Err()
}

// scanMessagesPG scans message rows from a pgx result set.
func scanMessagesPG(rows pgx.Rows) ([]models.Message, error) {
	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.Role, &msg.Content, &msg.AuthorName, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
