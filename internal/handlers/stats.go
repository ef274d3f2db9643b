package handlers

import (
	"net/http"

	"github.com/DenisLeme/pitchlab/internal/models"
)

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	TotalRooms    int64         `json:"total_rooms"`
	TotalMessages int64         `json:"total_messages"`
	TotalIdeas    int64         `json:"total_ideas"`
	TopIdeas      []models.Idea `json:"top_ideas"`
}

// Stats returns platform-wide totals and the highest scored ideas.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalRooms, err := h.store.CountRooms(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count rooms")
		return
	}

	totalMessages, err := h.store.CountMessages(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count messages")
		return
	}

	totalIdeas, err := h.store.CountIdeas(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count ideas")
		return
	}

	topIdeas, err := h.store.TopIdeas(ctx, 5)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to get top ideas")
		return
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		TotalRooms:    totalRooms,
		TotalMessages: totalMessages,
		TotalIdeas:    totalIdeas,
		TopIdeas:      topIdeas,
	})
}
