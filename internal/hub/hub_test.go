package hub

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/DenisLeme/pitchlab/internal/models"
)

func newTestHub() *Hub {
	return New(zerolog.Nop())
}

// drain reads all currently buffered events from a subscriber.
func drain(sub *Subscriber) []Event {
	var events []Event
	for {
		select {
		case ev := <-sub.Events:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestJoinNotifiesOthersNotJoiner(t *testing.T) {
	h := newTestHub()
	roomID := uuid.New()

	alice := h.Join(roomID, "alice")
	bob := h.Join(roomID, "bob")

	// Alice should see Bob's arrival as a typing=false presence signal.
	aliceEvents := drain(alice)
	if len(aliceEvents) != 1 || aliceEvents[0].Type != EventTyping {
		t.Fatalf("expected one typing event for alice, got %v", aliceEvents)
	}
	data := aliceEvents[0].Data.(TypingData)
	if data.Name != "bob" || data.Typing {
		t.Fatalf("unexpected presence payload: %+v", data)
	}

	// Bob must not see his own arrival.
	if events := drain(bob); len(events) != 0 {
		t.Fatalf("joiner received its own notification: %v", events)
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	h := newTestHub()
	roomID := uuid.New()

	alice := h.Join(roomID, "alice")
	bob := h.Join(roomID, "bob")
	drain(alice)
	drain(bob)

	other := h.Join(uuid.New(), "carol")
	drain(other)

	msg := &models.Message{ID: "01J00000000000000000000001", RoomID: roomID, Role: models.RoleUser, Content: "oi"}
	h.Publish(roomID, NewMessageEvent(msg))

	for name, sub := range map[string]*Subscriber{"alice": alice, "bob": bob} {
		events := drain(sub)
		if len(events) != 1 || events[0].Type != EventNewMessage {
			t.Fatalf("%s expected one new_message, got %v", name, events)
		}
	}

	// Events stay room-scoped.
	if events := drain(other); len(events) != 0 {
		t.Fatalf("other room received events: %v", events)
	}
}

func TestTypingExcludesSenderByName(t *testing.T) {
	h := newTestHub()
	roomID := uuid.New()

	// Two sessions for alice (two tabs), one for bob.
	alice1 := h.Join(roomID, "alice")
	alice2 := h.Join(roomID, "alice")
	bob := h.Join(roomID, "bob")
	drain(alice1)
	drain(alice2)
	drain(bob)

	h.Typing(roomID, "alice", true)

	if events := drain(alice1); len(events) != 0 {
		t.Fatalf("sender session 1 received its own typing event: %v", events)
	}
	if events := drain(alice2); len(events) != 0 {
		t.Fatalf("sender session 2 received its own typing event: %v", events)
	}

	events := drain(bob)
	if len(events) != 1 || events[0].Type != EventTyping {
		t.Fatalf("bob expected one typing event, got %v", events)
	}
	if data := events[0].Data.(TypingData); data.Name != "alice" || !data.Typing {
		t.Fatalf("unexpected typing payload: %+v", data)
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := newTestHub()
	roomID := uuid.New()

	sub := h.Join(roomID, "slow")

	// Overfill the buffer; publish must return without blocking.
	for i := 0; i < subscriberBuffer+10; i++ {
		h.Publish(roomID, HeartbeatEvent())
	}

	if got := len(drain(sub)); got != subscriberBuffer {
		t.Fatalf("expected %d buffered events, got %d", subscriberBuffer, got)
	}
}

func TestLeaveClosesChannels(t *testing.T) {
	h := newTestHub()
	roomID := uuid.New()

	sub := h.Join(roomID, "alice")
	h.Leave(roomID, sub.ID)

	if _, open := <-sub.Events; open {
		t.Fatal("events channel should be closed")
	}
	select {
	case <-sub.Done:
	default:
		t.Fatal("done channel should be closed")
	}

	if got := h.SubscriberCount(roomID); got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}

	// Leaving twice must not panic.
	h.Leave(roomID, sub.ID)
}

func TestCloseAll(t *testing.T) {
	h := newTestHub()
	roomA := uuid.New()
	roomB := uuid.New()

	a := h.Join(roomA, "alice")
	b := h.Join(roomB, "bob")

	h.CloseAll()

	for _, sub := range []*Subscriber{a, b} {
		select {
		case <-sub.Done:
		default:
			t.Fatal("done channel should be closed after CloseAll")
		}
	}
	if h.SubscriberCount(roomA) != 0 || h.SubscriberCount(roomB) != 0 {
		t.Fatal("rooms should be empty after CloseAll")
	}
}

func TestPublishBeforeInitializationPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic from nil hub")
		}
	}()

	var h *Hub
	h.Publish(uuid.New(), HeartbeatEvent())
}
