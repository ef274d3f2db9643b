package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
)

// RoomTags handles the room's aggregated tag view: each tag with the number
// of distinct messages linked to it, most used first.
func (h *Handler) RoomTags(w http.ResponseWriter, r *http.Request) {
	room, ok := h.roomFromURL(w, r)
	if !ok {
		return
	}

	tags, err := h.store.ListRoomTags(r.Context(), room.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("room_id", room.ID.String()).Msg("failed to list room tags")
		h.Error(w, http.StatusInternalServerError, "failed to fetch tags")
		return
	}
	h.JSON(w, http.StatusOK, map[string]interface{}{"tags": tags})
}

// MessageTags handles listing the tags linked to one message.
func (h *Handler) MessageTags(w http.ResponseWriter, r *http.Request) {
	messageID := strings.ToUpper(chi.URLParam(r, "id"))
	if _, err := ulid.Parse(messageID); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid message ID format")
		return
	}

	tags, err := h.store.ListMessageTags(r.Context(), messageID)
	if err != nil {
		h.logger.Error().Err(err).Str("message_id", messageID).Msg("failed to list message tags")
		h.Error(w, http.StatusInternalServerError, "failed to fetch tags")
		return
	}
	h.JSON(w, http.StatusOK, map[string]interface{}{"tags": tags})
}
