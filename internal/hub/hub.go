package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/DenisLeme/pitchlab/internal/metrics"
)

// subscriberBuffer is the per-subscriber event channel capacity. A subscriber
// that falls this far behind starts losing events rather than blocking fanout.
const subscriberBuffer = 64

// Subscriber is one connected session inside a room.
type Subscriber struct {
	ID       string
	RoomID   uuid.UUID
	Name     string
	Events   chan Event
	Done     chan struct{}
	JoinedAt time.Time
}

// Hub maintains the mapping from room ID to the set of currently subscribed
// sessions and fans room-scoped events out to them. It is constructed once in
// main and passed by reference to every component that publishes; the mapping
// is process-local and rebuilt empty on every restart.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[uuid.UUID]map[string]*Subscriber
	logger zerolog.Logger
}

// New creates a Hub.
func New(logger zerolog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[uuid.UUID]map[string]*Subscriber),
		logger: logger,
	}
}

// ready panics if the hub was never constructed. Publishing through a nil hub
// is a programming error, not a runtime condition to recover from.
func (h *Hub) ready() {
	if h == nil {
		panic("hub: publish before initialization")
	}
}

// Join adds a session to a room's subscriber set and notifies the other
// current subscribers of the arrival (a typing=false presence signal, per the
// wire protocol). The joining session does not receive its own notification,
// and no history is replayed here.
func (h *Hub) Join(roomID uuid.UUID, name string) *Subscriber {
	h.ready()

	sub := &Subscriber{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		Name:     name,
		Events:   make(chan Event, subscriberBuffer),
		Done:     make(chan struct{}),
		JoinedAt: time.Now(),
	}

	h.mu.Lock()
	room, ok := h.rooms[roomID]
	if !ok {
		room = make(map[string]*Subscriber)
		h.rooms[roomID] = room
	}
	room[sub.ID] = sub
	total := len(room)
	h.mu.Unlock()

	metrics.SubscribersConnected.Inc()

	h.logger.Info().
		Str("room_id", roomID.String()).
		Str("subscriber_id", sub.ID).
		Str("name", name).
		Int("room_subscribers", total).
		Msg("subscriber joined room")

	h.publish(roomID, TypingEvent(name, false), sub.ID, "")

	return sub
}

// Leave removes a session from its room's subscriber set and closes its
// channels. Safe to call for an already-removed subscriber.
func (h *Hub) Leave(roomID uuid.UUID, subID string) {
	h.mu.Lock()
	room, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return
	}
	sub, ok := room[subID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(room, subID)
	if len(room) == 0 {
		delete(h.rooms, roomID)
	}
	h.mu.Unlock()

	close(sub.Done)
	close(sub.Events)

	metrics.SubscribersConnected.Dec()

	h.logger.Info().
		Str("room_id", roomID.String()).
		Str("subscriber_id", subID).
		Dur("duration", time.Since(sub.JoinedAt)).
		Msg("subscriber left room")
}

// Publish broadcasts an event to every current subscriber of the room,
// sender included. These are state-confirming broadcasts.
func (h *Hub) Publish(roomID uuid.UUID, event Event) {
	h.ready()
	h.publish(roomID, event, "", "")
}

// Typing relays a typing-state change to every other subscriber of the room.
// The sender is identified by the display name it joined with.
func (h *Hub) Typing(roomID uuid.UUID, name string, typing bool) {
	h.ready()
	h.publish(roomID, TypingEvent(name, typing), "", name)
}

// publish delivers an event to the room's subscribers, skipping exceptID
// and any subscriber carrying exceptName. Sends never block: a slow
// subscriber loses the event instead of stalling the room.
func (h *Hub) publish(roomID uuid.UUID, event Event, exceptID, exceptName string) {
	var delivered, dropped int

	h.mu.RLock()
	for _, sub := range h.rooms[roomID] {
		if exceptID != "" && sub.ID == exceptID {
			continue
		}
		if exceptName != "" && sub.Name == exceptName {
			continue
		}
		select {
		case sub.Events <- event:
			delivered++
		default:
			dropped++
			metrics.EventsDropped.Inc()
			h.logger.Warn().
				Str("subscriber_id", sub.ID).
				Str("event_type", string(event.Type)).
				Msg("dropped event for slow subscriber")
		}
	}
	h.mu.RUnlock()

	metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()

	if event.Type != EventHeartbeat {
		h.logger.Debug().
			Str("room_id", roomID.String()).
			Str("event_type", string(event.Type)).
			Int("delivered", delivered).
			Int("dropped", dropped).
			Msg("event broadcast")
	}
}

// SubscriberCount returns the number of sessions subscribed to a room.
func (h *Hub) SubscriberCount(roomID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// CloseAll disconnects every subscriber (used during shutdown).
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range h.rooms {
		for _, sub := range room {
			close(sub.Done)
			close(sub.Events)
			metrics.SubscribersConnected.Dec()
		}
	}
	h.rooms = make(map[uuid.UUID]map[string]*Subscriber)

	h.logger.Info().Msg("all subscribers disconnected")
}
