package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/DenisLeme/pitchlab/internal/hub"
	"github.com/DenisLeme/pitchlab/internal/metrics"
	"github.com/DenisLeme/pitchlab/internal/models"
)

// CreateIdeaRequest represents the idea creation request.
type CreateIdeaRequest struct {
	Content string `json:"content"`
}

// VoteIdeaRequest represents the vote request. Value defaults to 1 when the
// body omits it; any other value is rejected.
type VoteIdeaRequest struct {
	Value *int `json:"value"`
}

// CreateIdea handles posting an idea to a room.
func (h *Handler) CreateIdea(w http.ResponseWriter, r *http.Request) {
	room, ok := h.roomFromURL(w, r)
	if !ok {
		return
	}

	var req CreateIdeaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Content == "" || utf8.RuneCountInString(req.Content) > 500 {
		h.Error(w, http.StatusBadRequest, "content must be 1-500 characters")
		return
	}

	idea := &models.Idea{
		RoomID:  room.ID,
		Content: req.Content,
	}
	if err := h.store.CreateIdea(r.Context(), idea); err != nil {
		h.logger.Error().Err(err).Str("room_id", room.ID.String()).Msg("failed to store idea")
		h.Error(w, http.StatusInternalServerError, "failed to store idea")
		return
	}

	metrics.IdeasCreated.Inc()
	h.hub.Publish(room.ID, hub.NewIdeaEvent(idea))

	h.JSON(w, http.StatusCreated, idea)
}

// VoteIdea handles upvoting an idea. Votes are not deduplicated: the same
// caller voting twice moves the score twice.
func (h *Handler) VoteIdea(w http.ResponseWriter, r *http.Request) {
	ideaID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid idea ID format")
		return
	}

	// An empty body is a plain upvote.
	var req VoteIdeaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	value := 1
	if req.Value != nil {
		value = *req.Value
	}
	if value != 1 {
		h.Error(w, http.StatusBadRequest, "value must be 1")
		return
	}

	idea, err := h.store.VoteIdea(r.Context(), ideaID, value)
	if err != nil {
		h.logger.Error().Err(err).Str("idea_id", ideaID.String()).Msg("failed to vote idea")
		h.Error(w, http.StatusInternalServerError, "failed to vote idea")
		return
	}
	if idea == nil {
		h.Error(w, http.StatusNotFound, "idea not found")
		return
	}

	metrics.IdeaVotes.Inc()
	h.hub.Publish(idea.RoomID, hub.VoteIdeaEvent(idea))

	h.JSON(w, http.StatusOK, idea)
}
