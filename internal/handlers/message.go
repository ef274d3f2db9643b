package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/DenisLeme/pitchlab/internal/ai"
	"github.com/DenisLeme/pitchlab/internal/hub"
	"github.com/DenisLeme/pitchlab/internal/metrics"
	"github.com/DenisLeme/pitchlab/internal/models"
)

// digestTimeout bounds a background digest triggered from a message post.
// It is detached from the request context so the digest survives the
// client disconnecting right after the 201.
const digestTimeout = 60 * time.Second

// PostMessageRequest represents the post message request.
type PostMessageRequest struct {
	AuthorName string `json:"author_name"`
	Content    string `json:"content"`
	TriggerAI  bool   `json:"trigger_ai"`
}

// ListMessagesResponse represents one page of room history, oldest first.
// NextCursor is set only when older messages remain; pass it back as ?cursor=
// to fetch them.
type ListMessagesResponse struct {
	Room       *models.Room     `json:"room"`
	Messages   []models.Message `json:"messages"`
	HasMore    bool             `json:"has_more"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// ListMessages handles fetching a page of messages from a room.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	room, ok := h.roomFromURL(w, r)
	if !ok {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l < 1 || l > 50 {
			h.Error(w, http.StatusBadRequest, "limit must be between 1 and 50")
			return
		}
		limit = l
	}
	cursor := r.URL.Query().Get("cursor")

	// Fetch one extra row newest-first to detect another page, then flip to
	// chronological order for the client.
	messages, err := h.store.ListMessages(r.Context(), room.ID, limit+1, cursor)
	if err != nil {
		h.logger.Error().Err(err).Str("room_id", room.ID.String()).Msg("failed to list messages")
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	resp := ListMessagesResponse{
		Room:     room,
		Messages: messages,
		HasMore:  hasMore,
	}
	if hasMore && len(messages) > 0 {
		resp.NextCursor = messages[0].ID
	}
	h.JSON(w, http.StatusOK, resp)
}

// PostMessage handles posting a user message to a room. When trigger_ai is
// set, a full digest runs in the background after the message is accepted.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	room, ok := h.roomFromURL(w, r)
	if !ok {
		return
	}

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	author := sanitizeName(req.AuthorName)
	if author == "" || utf8.RuneCountInString(author) > 60 {
		h.Error(w, http.StatusBadRequest, "author_name must be 1-60 characters")
		return
	}
	if req.Content == "" || utf8.RuneCountInString(req.Content) > 1000 {
		h.Error(w, http.StatusBadRequest, "content must be 1-1000 characters")
		return
	}

	msg := &models.Message{
		RoomID:     room.ID,
		Role:       models.RoleUser,
		Content:    req.Content,
		AuthorName: author,
	}
	if err := h.store.CreateMessage(r.Context(), msg); err != nil {
		h.logger.Error().Err(err).Str("room_id", room.ID.String()).Msg("failed to store message")
		h.Error(w, http.StatusInternalServerError, "failed to store message")
		return
	}

	metrics.MessagesPosted.WithLabelValues(models.RoleUser).Inc()
	h.hub.Publish(room.ID, hub.NewMessageEvent(msg))

	if req.TriggerAI {
		go h.runBackgroundDigest(room.ID)
	}

	h.JSON(w, http.StatusCreated, msg)
}

// runBackgroundDigest runs a full digest detached from the originating
// request. A panic here must not take the server down with it.
func (h *Handler) runBackgroundDigest(roomID uuid.UUID) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error().
				Interface("panic", rec).
				Str("room_id", roomID.String()).
				Msg("background digest panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), digestTimeout)
	defer cancel()

	if err := h.digest.Run(ctx, roomID, ai.ModeSummaryAll); err != nil {
		h.logger.Error().Err(err).Str("room_id", roomID.String()).Msg("background digest failed")
	}
}
