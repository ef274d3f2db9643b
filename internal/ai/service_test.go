package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/DenisLeme/pitchlab/internal/hub"
	"github.com/DenisLeme/pitchlab/internal/models"
	"github.com/DenisLeme/pitchlab/internal/store"
)

// stubCompleter returns a canned digest and records the context it was given.
type stubCompleter struct {
	result      DigestResult
	lastContext string
}

func (s *stubCompleter) Summarize(ctx context.Context, contextText string) DigestResult {
	s.lastContext = contextText
	return s.result
}

// recordingPublisher captures published events instead of fanning them out.
type recordingPublisher struct {
	events []hub.Event
}

func (p *recordingPublisher) Publish(roomID uuid.UUID, event hub.Event) {
	p.events = append(p.events, event)
}

func (p *recordingPublisher) byType(t hub.EventType) []hub.Event {
	var out []hub.Event
	for _, ev := range p.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type serviceFixture struct {
	store     store.DataStore
	completer *stubCompleter
	pub       *recordingPublisher
	svc       *Service
	room      *models.Room
}

func newServiceFixture(t *testing.T, result DigestResult) *serviceFixture {
	t.Helper()

	st, err := store.NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(st.Close)

	room, err := st.CreateRoom(context.Background(), "Demo")
	if err != nil {
		t.Fatal(err)
	}

	completer := &stubCompleter{result: result}
	pub := &recordingPublisher{}
	return &serviceFixture{
		store:     st,
		completer: completer,
		pub:       pub,
		svc:       NewService(st, completer, pub, zerolog.Nop()),
		room:      room,
	}
}

func (f *serviceFixture) postUserMessage(t *testing.T, content string) *models.Message {
	t.Helper()
	msg := &models.Message{RoomID: f.room.ID, Role: models.RoleUser, Content: content, AuthorName: "ana"}
	if err := f.store.CreateMessage(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	return msg
}

func (f *serviceFixture) assistantContents(t *testing.T) []string {
	t.Helper()
	history, err := f.store.ListRoomHistory(context.Background(), f.room.ID)
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, msg := range history {
		if msg.Role == models.RoleAssistant {
			out = append(out, msg.Content)
		}
	}
	return out
}

func TestRunSummaryAllMaterializesThreeMessages(t *testing.T) {
	f := newServiceFixture(t, DigestResult{
		Summary: "um resumo",
		Tags:    []string{"produto", "mvp"},
		Pitch:   "um pitch",
	})
	f.postUserMessage(t, "vamos construir algo")

	if err := f.svc.Run(context.Background(), f.room.ID, ModeSummaryAll); err != nil {
		t.Fatal(err)
	}

	contents := f.assistantContents(t)
	if len(contents) != 3 {
		t.Fatalf("expected 3 assistant messages, got %v", contents)
	}
	if contents[0] != "Resumo:\num resumo" {
		t.Fatalf("unexpected summary message: %q", contents[0])
	}
	if contents[1] != "Tags sugeridas: produto, mvp" {
		t.Fatalf("unexpected tags message: %q", contents[1])
	}
	if contents[2] != "Pitch:\num pitch" {
		t.Fatalf("unexpected pitch message: %q", contents[2])
	}

	if got := len(f.pub.byType(hub.EventNewSummary)); got != 3 {
		t.Fatalf("expected 3 new_summary events, got %d", got)
	}
	if got := len(f.pub.byType(hub.EventTagsUpdated)); got != 1 {
		t.Fatalf("expected 1 tags_updated event, got %d", got)
	}

	// Tags land on the latest user message.
	last, err := f.store.LatestUserMessage(context.Background(), f.room.ID)
	if err != nil {
		t.Fatal(err)
	}
	tags, err := f.store.ListMessageTags(context.Background(), last.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 {
		t.Fatalf("expected 2 linked tags, got %v", tags)
	}
}

func TestRunTagsUpdatedIsPublishedLast(t *testing.T) {
	f := newServiceFixture(t, DigestResult{
		Summary: "resumo",
		Tags:    []string{"x"},
		Pitch:   "pitch",
	})
	f.postUserMessage(t, "oi")

	if err := f.svc.Run(context.Background(), f.room.ID, ModeSummaryAll); err != nil {
		t.Fatal(err)
	}

	lastEvent := f.pub.events[len(f.pub.events)-1]
	if lastEvent.Type != hub.EventTagsUpdated {
		t.Fatalf("expected tags_updated last, got %s", lastEvent.Type)
	}
}

func TestRunOmitsFallbackSummaryAndPitch(t *testing.T) {
	f := newServiceFixture(t, fallbackResult())
	f.postUserMessage(t, "oi")

	if err := f.svc.Run(context.Background(), f.room.ID, ModeSummaryAll); err != nil {
		t.Fatal(err)
	}

	contents := f.assistantContents(t)
	if len(contents) != 1 {
		t.Fatalf("expected only the tags message, got %v", contents)
	}
	if !strings.HasPrefix(contents[0], "Tags sugeridas: ") {
		t.Fatalf("unexpected message: %q", contents[0])
	}
}

func TestRunTagsOnlySkipsSummaryAndPitch(t *testing.T) {
	f := newServiceFixture(t, DigestResult{
		Summary: "resumo real",
		Tags:    []string{"a", "b"},
		Pitch:   "pitch real",
	})
	f.postUserMessage(t, "oi")

	if err := f.svc.Run(context.Background(), f.room.ID, ModeTagsOnly); err != nil {
		t.Fatal(err)
	}

	contents := f.assistantContents(t)
	if len(contents) != 1 || contents[0] != "Tags sugeridas: a, b" {
		t.Fatalf("expected only the tags message, got %v", contents)
	}
}

func TestRunPitchOnlyHasNoTagSideEffects(t *testing.T) {
	f := newServiceFixture(t, DigestResult{
		Summary: "resumo",
		Tags:    []string{"a"},
		Pitch:   "pitch real",
	})
	f.postUserMessage(t, "oi")

	if err := f.svc.Run(context.Background(), f.room.ID, ModePitchOnly); err != nil {
		t.Fatal(err)
	}

	contents := f.assistantContents(t)
	if len(contents) != 1 || contents[0] != "Pitch:\npitch real" {
		t.Fatalf("expected only the pitch message, got %v", contents)
	}

	view, err := f.store.ListRoomTags(context.Background(), f.room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(view) != 0 {
		t.Fatalf("pitch_only must not create tags, got %v", view)
	}
	if got := len(f.pub.byType(hub.EventTagsUpdated)); got != 0 {
		t.Fatalf("pitch_only must not publish tags_updated, got %d", got)
	}
}

func TestRunSkipsTaggingWithoutUserMessage(t *testing.T) {
	f := newServiceFixture(t, DigestResult{
		Summary: "resumo",
		Tags:    []string{"a"},
		Pitch:   "pitch",
	})
	// Only an assistant message in the room.
	msg := &models.Message{RoomID: f.room.ID, Role: models.RoleAssistant, Content: "olá"}
	if err := f.store.CreateMessage(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Run(context.Background(), f.room.ID, ModeSummaryAll); err != nil {
		t.Fatal(err)
	}

	view, err := f.store.ListRoomTags(context.Background(), f.room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(view) != 0 {
		t.Fatalf("tags must not be linked without a user message, got %v", view)
	}
	if got := len(f.pub.byType(hub.EventTagsUpdated)); got != 0 {
		t.Fatalf("expected no tags_updated event, got %d", got)
	}

	// The tags announcement message still goes out.
	contents := f.assistantContents(t)
	found := false
	for _, c := range contents {
		if strings.HasPrefix(c, "Tags sugeridas: ") {
			found = true
		}
	}
	if !found {
		t.Fatalf("tags announcement missing: %v", contents)
	}
}

func TestRunOnEmptyRoom(t *testing.T) {
	for _, mode := range []Mode{ModeSummaryAll, ModeTagsOnly, ModePitchOnly} {
		f := newServiceFixture(t, DigestResult{
			Summary: "resumo",
			Tags:    []string{"a"},
			Pitch:   "pitch",
		})

		if err := f.svc.Run(context.Background(), f.room.ID, mode); err != nil {
			t.Fatalf("mode %s failed on empty room: %v", mode, err)
		}
		if f.completer.lastContext != EmptyContext {
			t.Fatalf("expected empty-context placeholder, got %q", f.completer.lastContext)
		}

		view, err := f.store.ListRoomTags(context.Background(), f.room.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(view) != 0 {
			t.Fatalf("mode %s linked tags in an empty room: %v", mode, view)
		}
	}
}

func TestRunIsIdempotentForTagLinks(t *testing.T) {
	f := newServiceFixture(t, DigestResult{
		Summary: "resumo",
		Tags:    []string{"Produto", "produto", " MVP "},
		Pitch:   "pitch",
	})
	f.postUserMessage(t, "oi")

	if err := f.svc.Run(context.Background(), f.room.ID, ModeTagsOnly); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Run(context.Background(), f.room.ID, ModeTagsOnly); err != nil {
		t.Fatal(err)
	}

	view, err := f.store.ListRoomTags(context.Background(), f.room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(view) != 2 {
		t.Fatalf("expected 2 distinct tags, got %v", view)
	}
	for _, tc := range view {
		if tc.Uses != 1 {
			t.Fatalf("duplicate links created: %+v", tc)
		}
	}
}

func TestRunExcludesPriorDigestsFromContext(t *testing.T) {
	f := newServiceFixture(t, DigestResult{Summary: "resumo", Tags: nil, Pitch: "pitch"})
	f.postUserMessage(t, "assunto real")

	if err := f.svc.Run(context.Background(), f.room.ID, ModeSummaryAll); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Run(context.Background(), f.room.ID, ModeSummaryAll); err != nil {
		t.Fatal(err)
	}

	if strings.Contains(f.completer.lastContext, "Resumo:") {
		t.Fatalf("prior digest leaked into context: %q", f.completer.lastContext)
	}
	if !strings.Contains(f.completer.lastContext, "assunto real") {
		t.Fatalf("user message missing from context: %q", f.completer.lastContext)
	}
}
