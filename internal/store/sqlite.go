package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/DenisLeme/pitchlab/internal/models"
)

// SQLiteStore handles SQLite database operations. It is the zero-config
// local mode: no DATABASE_URL means rooms live in a local file (or memory).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/pitchlab.db". ":memory:" is supported.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/pitchlab.db"
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL REFERENCES rooms(id),
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		author_name TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS ideas (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL REFERENCES rooms(id),
		content TEXT NOT NULL,
		score INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS message_tags (
		message_id TEXT NOT NULL REFERENCES messages(id),
		tag_id TEXT NOT NULL REFERENCES tags(id),
		PRIMARY KEY (message_id, tag_id)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages(room_id, created_at, id);
	CREATE INDEX IF NOT EXISTS idx_ideas_room ON ideas(room_id);
	CREATE INDEX IF NOT EXISTS idx_message_tags_tag ON message_tags(tag_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateRoom creates a new room.
func (s *SQLiteStore) CreateRoom(ctx context.Context, name string) (*models.Room, error) {
	id := uuid.New()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (id, name, created_at) VALUES (?, ?, ?)
	`, id.String(), name, now)
	if err != nil {
		return nil, err
	}

	return &models.Room{ID: id, Name: name, CreatedAt: now}, nil
}

// GetRoom retrieves a room by ID.
func (s *SQLiteStore) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	room := &models.Room{}
	var idStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at FROM rooms WHERE id = ?
	`, id.String()).Scan(&idStr, &room.Name, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	room.ID = uuid.MustParse(idStr)
	return room, nil
}

// ListRooms retrieves all rooms, newest first.
func (s *SQLiteStore) ListRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at FROM rooms ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		var room models.Room
		var idStr string
		if err := rows.Scan(&idStr, &room.Name, &room.CreatedAt); err != nil {
			return nil, err
		}
		room.ID = uuid.MustParse(idStr)
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// CreateMessage stores a message, generating its ULID and timestamp.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, room_id, role, content, author_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.RoomID.String(), msg.Role, msg.Content, msg.AuthorName, msg.CreatedAt)
	return err
}

// ListMessages retrieves up to limit messages newest-first, starting after
// the cursor message when one is given.
func (s *SQLiteStore) ListMessages(ctx context.Context, roomID uuid.UUID, limit int, cursor string) ([]models.Message, error) {
	query := `
		SELECT id, room_id, role, content, author_name, created_at
		FROM messages
		WHERE room_id = ?`
	args := []any{roomID.String()}

	if cursor != "" {
		// ULIDs sort by creation time, so the cursor comparison can use
		// (created_at, id) directly.
		var cursorAt time.Time
		err := s.db.QueryRowContext(ctx, `
			SELECT created_at FROM messages WHERE id = ?
		`, cursor).Scan(&cursorAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, err
		}
		query += ` AND (created_at < ? OR (created_at = ? AND id < ?))`
		args = append(args, cursorAt, cursorAt, cursor)
	}

	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessagesSQL(rows)
}

// ListRoomHistory retrieves the full message history of a room, oldest first.
func (s *SQLiteStore) ListRoomHistory(ctx context.Context, roomID uuid.UUID) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, role, content, author_name, created_at
		FROM messages
		WHERE room_id = ?
		ORDER BY created_at ASC, id ASC
	`, roomID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessagesSQL(rows)
}

// LatestUserMessage retrieves the most recent user-authored message in a room.
func (s *SQLiteStore) LatestUserMessage(ctx context.Context, roomID uuid.UUID) (*models.Message, error) {
	var msg models.Message
	var roomStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, room_id, role, content, author_name, created_at
		FROM messages
		WHERE room_id = ? AND role = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, roomID.String(), models.RoleUser).Scan(
		&msg.ID, &roomStr, &msg.Role, &msg.Content, &msg.AuthorName, &msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	msg.RoomID = uuid.MustParse(roomStr)
	return &msg, nil
}

// CreateIdea stores a new idea with score zero.
func (s *SQLiteStore) CreateIdea(ctx context.Context, idea *models.Idea) error {
	if idea.ID == uuid.Nil {
		idea.ID = uuid.New()
	}
	if idea.CreatedAt.IsZero() {
		idea.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ideas (id, room_id, content, score, created_at)
		VALUES (?, ?, ?, 0, ?)
	`, idea.ID.String(), idea.RoomID.String(), idea.Content, idea.CreatedAt)
	return err
}

// GetIdea retrieves an idea by ID.
func (s *SQLiteStore) GetIdea(ctx context.Context, id uuid.UUID) (*models.Idea, error) {
	idea := &models.Idea{}
	var idStr, roomStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, room_id, content, score, created_at FROM ideas WHERE id = ?
	`, id.String()).Scan(&idStr, &roomStr, &idea.Content, &idea.Score, &idea.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	idea.ID = uuid.MustParse(idStr)
	idea.RoomID = uuid.MustParse(roomStr)
	return idea, nil
}

// VoteIdea adjusts an idea's score and returns the updated idea.
// Returns (nil, nil) if the idea does not exist.
func (s *SQLiteStore) VoteIdea(ctx context.Context, id uuid.UUID, delta int) (*models.Idea, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ideas SET score = score + ? WHERE id = ?
	`, delta, id.String())
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetIdea(ctx, id)
}

// UpsertTag creates a tag if absent and returns the stored tag.
// Names are lowercased and trimmed before storage.
func (s *SQLiteStore) UpsertTag(ctx context.Context, name string) (*models.Tag, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, name) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING
	`, uuid.New().String(), name)
	if err != nil {
		return nil, err
	}

	tag := &models.Tag{}
	var idStr string
	err = s.db.QueryRowContext(ctx, `
		SELECT id, name FROM tags WHERE name = ?
	`, name).Scan(&idStr, &tag.Name)
	if err != nil {
		return nil, err
	}
	tag.ID = uuid.MustParse(idStr)
	return tag, nil
}

// LinkMessageTag associates a tag with a message. No-op if the link exists.
func (s *SQLiteStore) LinkMessageTag(ctx context.Context, messageID string, tagID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO message_tags (message_id, tag_id) VALUES (?, ?)
		ON CONFLICT(message_id, tag_id) DO NOTHING
	`, messageID, tagID.String())
	return err
}

// ListRoomTags returns every tag referenced by a message in the room with its
// usage count, ordered by usage descending then name ascending.
func (s *SQLiteStore) ListRoomTags(ctx context.Context, roomID uuid.UUID) ([]models.TagCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, COUNT(mt.message_id) AS uses
		FROM tags t
		JOIN message_tags mt ON mt.tag_id = t.id
		JOIN messages m ON m.id = mt.message_id
		WHERE m.room_id = ?
		GROUP BY t.id, t.name
		ORDER BY uses DESC, t.name ASC
	`, roomID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.TagCount
	for rows.Next() {
		var tc models.TagCount
		var idStr string
		if err := rows.Scan(&idStr, &tc.Name, &tc.Uses); err != nil {
			return nil, err
		}
		tc.ID = uuid.MustParse(idStr)
		counts = append(counts, tc)
	}
	return counts, rows.Err()
}

// ListMessageTags returns the tags linked to a message, by name.
func (s *SQLiteStore) ListMessageTags(ctx context.Context, messageID string) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name
		FROM tags t
		JOIN message_tags mt ON mt.tag_id = t.id
		WHERE mt.message_id = ?
		ORDER BY t.name ASC
	`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var tag models.Tag
		var idStr string
		if err := rows.Scan(&idStr, &tag.Name); err != nil {
			return nil, err
		}
		tag.ID = uuid.MustParse(idStr)
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// CountRooms returns the total number of rooms.
func (s *SQLiteStore) CountRooms(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&count)
	return count, err
}

// CountMessages returns the total number of messages.
func (s *SQLiteStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

// CountIdeas returns the total number of ideas.
func (s *SQLiteStore) CountIdeas(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ideas`).Scan(&count)
	return count, err
}

// TopIdeas returns the highest-scored ideas across all rooms.
func (s *SQLiteStore) TopIdeas(ctx context.Context, limit int) ([]models.Idea, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, content, score, created_at
		FROM ideas
		ORDER BY score DESC, created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ideas []models.Idea
	for rows.Next() {
		var idea models.Idea
		var idStr, roomStr string
		if err := rows.Scan(&idStr, &roomStr, &idea.Content, &idea.Score, &idea.CreatedAt); err != nil {
			return nil, err
		}
		idea.ID = uuid.MustParse(idStr)
		idea.RoomID = uuid.MustParse(roomStr)
		ideas = append(ideas, idea)
	}
	return ideas, rows.Err()
}

// scanMessagesSQL scans message rows from a database/sql result set.
func scanMessagesSQL(rows *sql.Rows) ([]models.Message, error) {
	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var roomStr string
		if err := rows.Scan(&msg.ID, &roomStr, &msg.Role, &msg.Content, &msg.AuthorName, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.RoomID = uuid.MustParse(roomStr)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
