package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/DenisLeme/pitchlab/internal/hub"
)

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 25 * time.Second

// TypingRequest represents the typing relay request.
type TypingRequest struct {
	Name   string `json:"name"`
	Typing bool   `json:"typing"`
}

// Events handles the per-room SSE subscription. The connection joins the
// room's subscriber set for as long as it stays open; history is never
// replayed over this stream, clients page it via the messages endpoint.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	room, ok := h.roomFromURL(w, r)
	if !ok {
		return
	}

	name := sanitizeName(r.URL.Query().Get("name"))
	if name == "" || utf8.RuneCountInString(name) > 60 {
		h.Error(w, http.StatusBadRequest, "name query parameter must be 1-60 characters")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sub := h.hub.Join(room.ID, name)
	defer h.hub.Leave(room.ID, sub.ID)

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case event, open := <-sub.Events:
			if !open {
				return
			}
			if err := writeEvent(w, rc, event); err != nil {
				return
			}
		case <-ticker.C:
			if err := writeEvent(w, rc, hub.HeartbeatEvent()); err != nil {
				return
			}
		case <-sub.Done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Typing handles the typing relay: the change goes to every other subscriber
// of the room, never back to the sender, and is never persisted.
func (h *Handler) Typing(w http.ResponseWriter, r *http.Request) {
	room, ok := h.roomFromURL(w, r)
	if !ok {
		return
	}

	var req TypingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name := sanitizeName(req.Name)
	if name == "" || utf8.RuneCountInString(name) > 60 {
		h.Error(w, http.StatusBadRequest, "name must be 1-60 characters")
		return
	}

	h.hub.Typing(room.ID, name, req.Typing)
	h.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// writeEvent writes one event in SSE wire format and flushes it.
func writeEvent(w http.ResponseWriter, rc *http.ResponseController, event hub.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return err
	}
	return rc.Flush()
}
