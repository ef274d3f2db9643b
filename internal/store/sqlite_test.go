package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/DenisLeme/pitchlab/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func mustCreateRoom(t *testing.T, s *SQLiteStore, name string) *models.Room {
	t.Helper()
	room, err := s.CreateRoom(context.Background(), name)
	if err != nil {
		t.Fatal(err)
	}
	return room
}

func mustCreateMessage(t *testing.T, s *SQLiteStore, roomID uuid.UUID, role, content string) *models.Message {
	t.Helper()
	msg := &models.Message{RoomID: roomID, Role: role, Content: content}
	if role == models.RoleUser {
		msg.AuthorName = "tester"
	}
	if err := s.CreateMessage(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	return msg
}

func TestRoomLookupMissing(t *testing.T) {
	s := newTestStore(t)

	room, err := s.GetRoom(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if room != nil {
		t.Fatalf("expected nil for missing room, got %+v", room)
	}
}

func TestCreateAndListRooms(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := mustCreateRoom(t, s, "primeiro")
	mustCreateRoom(t, s, "segundo")

	got, err := s.GetRoom(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Name != "primeiro" {
		t.Fatalf("unexpected room: %+v", got)
	}

	rooms, err := s.ListRooms(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}
}

func TestCreateMessageFillsIDAndTimestamp(t *testing.T) {
	s := newTestStore(t)
	room := mustCreateRoom(t, s, "sala")

	msg := mustCreateMessage(t, s, room.ID, models.RoleUser, "oi")
	if msg.ID == "" {
		t.Fatal("expected generated ULID")
	}
	if msg.CreatedAt.IsZero() {
		t.Fatal("expected generated timestamp")
	}
}

func TestListMessagesPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	room := mustCreateRoom(t, s, "sala")

	var ids []string
	for i := 0; i < 5; i++ {
		msg := mustCreateMessage(t, s, room.ID, models.RoleUser, fmt.Sprintf("mensagem %d", i))
		ids = append(ids, msg.ID)
	}

	// First page: two newest, descending.
	page, err := s.ListMessages(ctx, room.ID, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].ID != ids[4] || page[1].ID != ids[3] {
		t.Fatalf("unexpected first page: %+v", page)
	}

	// Cursor pages strictly older messages.
	page, err = s.ListMessages(ctx, room.ID, 10, ids[3])
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 3 || page[0].ID != ids[2] || page[2].ID != ids[0] {
		t.Fatalf("unexpected cursor page: %+v", page)
	}

	// Unknown cursor yields an empty page, not an error.
	page, err = s.ListMessages(ctx, room.ID, 10, "01ZZZZZZZZZZZZZZZZZZZZZZZZ")
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 0 {
		t.Fatalf("expected empty page for unknown cursor, got %d", len(page))
	}
}

func TestListMessagesOrderingTieBreak(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	room := mustCreateRoom(t, s, "sala")

	// Same timestamp: ULID order decides.
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		msg := &models.Message{RoomID: room.ID, Role: models.RoleUser, Content: fmt.Sprintf("m%d", i), CreatedAt: at}
		if err := s.CreateMessage(ctx, msg); err != nil {
			t.Fatal(err)
		}
	}

	page, err := s.ListMessages(ctx, room.ID, 10, "")
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(page); i++ {
		if page[i-1].ID < page[i].ID {
			t.Fatalf("descending ID order violated: %s before %s", page[i-1].ID, page[i].ID)
		}
	}
}

func TestLatestUserMessageSkipsAssistant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	room := mustCreateRoom(t, s, "sala")

	user := mustCreateMessage(t, s, room.ID, models.RoleUser, "pergunta")
	mustCreateMessage(t, s, room.ID, models.RoleAssistant, "resposta")

	got, err := s.LatestUserMessage(ctx, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != user.ID {
		t.Fatalf("expected %s, got %+v", user.ID, got)
	}

	empty := mustCreateRoom(t, s, "vazia")
	got, err = s.LatestUserMessage(ctx, empty.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil for room without user messages, got %+v", got)
	}
}

func TestVoteIdea(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	room := mustCreateRoom(t, s, "sala")

	idea := &models.Idea{RoomID: room.ID, Content: "uma ideia"}
	if err := s.CreateIdea(ctx, idea); err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 3; i++ {
		got, err := s.VoteIdea(ctx, idea.ID, 1)
		if err != nil {
			t.Fatal(err)
		}
		if got.Score != i {
			t.Fatalf("expected score %d, got %d", i, got.Score)
		}
	}

	missing, err := s.VoteIdea(ctx, uuid.New(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing idea, got %+v", missing)
	}
}

func TestUpsertTagIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertTag(ctx, "  Produto ")
	if err != nil {
		t.Fatal(err)
	}
	if first.Name != "produto" {
		t.Fatalf("expected normalized name, got %q", first.Name)
	}

	second, err := s.UpsertTag(ctx, "PRODUTO")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same tag, got %s and %s", first.ID, second.ID)
	}
}

func TestRoomTagAggregation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	room := mustCreateRoom(t, s, "sala")
	other := mustCreateRoom(t, s, "outra")

	m1 := mustCreateMessage(t, s, room.ID, models.RoleUser, "m1")
	m2 := mustCreateMessage(t, s, room.ID, models.RoleUser, "m2")
	foreign := mustCreateMessage(t, s, other.ID, models.RoleUser, "m3")

	popular, _ := s.UpsertTag(ctx, "popular")
	rare, _ := s.UpsertTag(ctx, "raro")

	for _, target := range []string{m1.ID, m2.ID} {
		if err := s.LinkMessageTag(ctx, target, popular.ID); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.LinkMessageTag(ctx, m1.ID, rare.ID); err != nil {
		t.Fatal(err)
	}
	// Relinking is a no-op, not an error.
	if err := s.LinkMessageTag(ctx, m1.ID, rare.ID); err != nil {
		t.Fatal(err)
	}
	// Links in other rooms must not leak into this room's view.
	if err := s.LinkMessageTag(ctx, foreign.ID, popular.ID); err != nil {
		t.Fatal(err)
	}

	counts, err := s.ListRoomTags(ctx, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(counts) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(counts))
	}
	if counts[0].Name != "popular" || counts[0].Uses != 2 {
		t.Fatalf("unexpected first row: %+v", counts[0])
	}
	if counts[1].Name != "raro" || counts[1].Uses != 1 {
		t.Fatalf("unexpected second row: %+v", counts[1])
	}

	tags, err := s.ListMessageTags(ctx, m1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags on message, got %d", len(tags))
	}
}

func TestAggregateCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	room := mustCreateRoom(t, s, "sala")

	mustCreateMessage(t, s, room.ID, models.RoleUser, "m")
	for i := 0; i < 3; i++ {
		idea := &models.Idea{RoomID: room.ID, Content: fmt.Sprintf("ideia %d", i)}
		if err := s.CreateIdea(ctx, idea); err != nil {
			t.Fatal(err)
		}
		for v := 0; v < i; v++ {
			if _, err := s.VoteIdea(ctx, idea.ID, 1); err != nil {
				t.Fatal(err)
			}
		}
	}

	rooms, _ := s.CountRooms(ctx)
	messages, _ := s.CountMessages(ctx)
	ideas, _ := s.CountIdeas(ctx)
	if rooms != 1 || messages != 1 || ideas != 3 {
		t.Fatalf("unexpected counts: rooms=%d messages=%d ideas=%d", rooms, messages, ideas)
	}

	top, err := s.TopIdeas(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 || top[0].Score != 2 || top[1].Score != 1 {
		t.Fatalf("unexpected top ideas: %+v", top)
	}
}
