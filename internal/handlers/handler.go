package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/DenisLeme/pitchlab/internal/ai"
	"github.com/DenisLeme/pitchlab/internal/hub"
	"github.com/DenisLeme/pitchlab/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store  store.DataStore
	redis  *store.RedisStore
	hub    *hub.Hub
	digest *ai.Service
	logger zerolog.Logger
}

// NewHandler creates a new Handler. redis may be nil when no Redis is
// configured; everything else is required.
func NewHandler(st store.DataStore, redis *store.RedisStore, h *hub.Hub, digest *ai.Service, logger zerolog.Logger) *Handler {
	return &Handler{store: st, redis: redis, hub: h, digest: digest, logger: logger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeName trims a display name and removes control characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
}
