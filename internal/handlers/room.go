package handlers

import (
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/DenisLeme/pitchlab/internal/models"
)

// CreateRoomRequest represents the room creation request.
type CreateRoomRequest struct {
	Name string `json:"name"`
}

// JoinRoomResponse represents the join response: the room plus how many
// subscribers are currently connected to it.
type JoinRoomResponse struct {
	Room        *models.Room `json:"room"`
	Subscribers int          `json:"subscribers"`
}

// CreateRoom handles room creation.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name := sanitizeName(req.Name)
	if name == "" || utf8.RuneCountInString(name) > 80 {
		h.Error(w, http.StatusBadRequest, "name must be 1-80 characters")
		return
	}

	room, err := h.store.CreateRoom(r.Context(), name)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create room")
		h.Error(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	h.logger.Info().
		Str("room_id", room.ID.String()).
		Str("name", room.Name).
		Msg("room created")

	h.JSON(w, http.StatusCreated, room)
}

// ListRooms handles listing all rooms, newest first.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.store.ListRooms(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list rooms")
		h.Error(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}
	h.JSON(w, http.StatusOK, map[string]interface{}{"rooms": rooms})
}

// JoinRoom confirms a room exists before the client opens its event stream.
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := h.roomFromURL(w, r)
	if !ok {
		return
	}

	h.JSON(w, http.StatusOK, JoinRoomResponse{
		Room:        room,
		Subscribers: h.hub.SubscriberCount(room.ID),
	})
}

// roomFromURL parses the {id} URL param and loads the room, writing the
// appropriate error response when it cannot. The bool reports success.
func (h *Handler) roomFromURL(w http.ResponseWriter, r *http.Request) (*models.Room, bool) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return nil, false
	}

	room, err := h.store.GetRoom(r.Context(), roomID)
	if err != nil {
		h.logger.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to load room")
		h.Error(w, http.StatusInternalServerError, "database error")
		return nil, false
	}
	if room == nil {
		h.Error(w, http.StatusNotFound, "room not found")
		return nil, false
	}
	return room, true
}
