package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/DenisLeme/pitchlab/internal/ai"
)

// DigestRequest represents the body of the digest endpoints.
type DigestRequest struct {
	RoomID string `json:"room_id"`
}

// DigestSummary handles POST /ai/summary: full digest (summary, tags, pitch).
func (h *Handler) DigestSummary(w http.ResponseWriter, r *http.Request) {
	h.runDigest(w, r, ai.ModeSummaryAll)
}

// DigestTags handles POST /ai/tags: tag reconciliation only.
func (h *Handler) DigestTags(w http.ResponseWriter, r *http.Request) {
	h.runDigest(w, r, ai.ModeTagsOnly)
}

// DigestPitch handles POST /ai/pitch: pitch only.
func (h *Handler) DigestPitch(w http.ResponseWriter, r *http.Request) {
	h.runDigest(w, r, ai.ModePitchOnly)
}

// runDigest validates the room and runs one synchronous digest invocation.
// Completion degradation is absorbed into fallbacks upstream, so an error
// here means storage failed.
func (h *Handler) runDigest(w http.ResponseWriter, r *http.Request, mode ai.Mode) {
	var req DigestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room_id format")
		return
	}

	room, err := h.store.GetRoom(r.Context(), roomID)
	if err != nil {
		h.logger.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to load room")
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if room == nil {
		h.Error(w, http.StatusNotFound, "room not found")
		return
	}

	if err := h.digest.Run(r.Context(), roomID, mode); err != nil {
		h.logger.Error().
			Err(err).
			Str("room_id", roomID.String()).
			Str("mode", string(mode)).
			Msg("digest failed")
		h.Error(w, http.StatusInternalServerError, "digest failed")
		return
	}

	h.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}
