// Package hub implements the room event coordinator: it tracks which
// subscribers are connected to each room and fans room-scoped events out to
// them over Server-Sent Events.
package hub

import (
	"time"

	"github.com/DenisLeme/pitchlab/internal/models"
)

// EventType identifies a room-scoped event.
type EventType string

const (
	// EventNewMessage is broadcast when a chat message is created.
	EventNewMessage EventType = "new_message"
	// EventNewIdea is broadcast when an idea is created.
	EventNewIdea EventType = "new_idea"
	// EventVoteIdea is broadcast when an idea's score changes.
	EventVoteIdea EventType = "vote_idea"
	// EventNewSummary is broadcast for each assistant message a digest materializes.
	EventNewSummary EventType = "new_summary"
	// EventTagsUpdated carries the recomputed room tag view after reconciliation.
	EventTagsUpdated EventType = "tags_updated"
	// EventTyping relays presence/typing changes to other subscribers.
	EventTyping EventType = "typing"
	// EventHeartbeat is a connection keepalive, never persisted.
	EventHeartbeat EventType = "heartbeat"
)

// Event is a room-scoped event delivered to subscribers.
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// TypingData is the payload of a typing event.
type TypingData struct {
	Name   string `json:"name"`
	Typing bool   `json:"typing"`
}

// NewMessageEvent creates a new_message event.
func NewMessageEvent(msg *models.Message) Event {
	return Event{Type: EventNewMessage, Data: msg, Timestamp: time.Now()}
}

// NewIdeaEvent creates a new_idea event.
func NewIdeaEvent(idea *models.Idea) Event {
	return Event{Type: EventNewIdea, Data: idea, Timestamp: time.Now()}
}

// VoteIdeaEvent creates a vote_idea event carrying the updated idea.
func VoteIdeaEvent(idea *models.Idea) Event {
	return Event{Type: EventVoteIdea, Data: idea, Timestamp: time.Now()}
}

// NewSummaryEvent creates a new_summary event for a digest-produced message.
func NewSummaryEvent(msg *models.Message) Event {
	return Event{Type: EventNewSummary, Data: msg, Timestamp: time.Now()}
}

// TagsUpdatedEvent creates a tags_updated event with the room's tag view.
func TagsUpdatedEvent(tags []models.TagCount) Event {
	return Event{Type: EventTagsUpdated, Data: tags, Timestamp: time.Now()}
}

// TypingEvent creates a typing event.
func TypingEvent(name string, typing bool) Event {
	return Event{Type: EventTyping, Data: TypingData{Name: name, Typing: typing}, Timestamp: time.Now()}
}

// HeartbeatEvent creates a heartbeat keepalive event.
func HeartbeatEvent() Event {
	return Event{Type: EventHeartbeat, Data: map[string]time.Time{"server_time": time.Now()}, Timestamp: time.Now()}
}
