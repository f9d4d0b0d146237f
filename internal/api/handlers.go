package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/codesync/backend/internal/db"
	"github.com/codesync/backend/internal/room"
	"github.com/codesync/backend/internal/session"
)

type API struct {
	coordinator *session.Coordinator
	directory   *room.Directory
	database    *db.Database
}

func New(coordinator *session.Coordinator, directory *room.Directory, database *db.Database) *API {
	return &API{
		coordinator: coordinator,
		directory:   directory,
		database:    database,
	}
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"active_rooms":        a.directory.RoomCount(),
		"active_participants": a.directory.ParticipantCount(),
		"connections":         a.coordinator.ConnectionCount(),
		"timestamp":           time.Now().UTC().Format(time.RFC3339),
	}

	if a.database != nil {
		dbStats, err := a.database.GetStats()
		if err == nil {
			stats["saved_rooms"] = dbStats["room_count"]
			stats["saved_states"] = dbStats["state_count"]
		}
	}

	jsonResponse(w, http.StatusOK, stats)
}

// Room handlers

type RoomStatusResponse struct {
	ID           string             `json:"id"`
	Exists       bool               `json:"exists"`
	Name         string             `json:"name,omitempty"`
	Participants []room.Participant `json:"participants"`
}

// ActiveRoomsHandler lists live rooms with their participant counts.
func (a *API) ActiveRoomsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"rooms": a.directory.ActiveRooms(),
	})
}

// RoomStatusHandler is the pre-flight check a client runs before
// joining: does the room exist, and who is in it.
func (a *API) RoomStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
	roomID := strings.TrimSuffix(path, "/")

	if roomID == "" {
		errorResponse(w, http.StatusBadRequest, "Room ID is required")
		return
	}

	exists := a.directory.Exists(roomID)
	participants := a.directory.Snapshot(roomID)
	if participants == nil {
		participants = []room.Participant{}
	}
	name, _ := a.directory.RoomName(roomID)

	jsonResponse(w, http.StatusOK, RoomStatusResponse{
		ID:           roomID,
		Exists:       exists,
		Name:         name,
		Participants: participants,
	})
}

func (a *API) RoomsRouter(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/rooms")

	// /api/rooms or /api/rooms/
	if path == "" || path == "/" {
		a.ActiveRoomsHandler(w, r)
		return
	}

	// /api/rooms/{id}
	a.RoomStatusHandler(w, r)
}

// Snapshot save/load handlers

type SaveRoomRequest struct {
	RoomID   string `json:"roomId"`
	Code     string `json:"code"`
	Language string `json:"language"`
	Owner    string `json:"owner"`
}

func (a *API) SaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req SaveRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.RoomID == "" {
		errorResponse(w, http.StatusBadRequest, "roomId is required")
		return
	}

	if req.Language == "" {
		req.Language = "javascript"
	}
	if req.Owner == "" {
		req.Owner = "anonymous"
	}

	if err := a.database.SaveRoomState(req.RoomID, req.Code, req.Language, req.Owner); err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to save room state")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"roomId":  req.RoomID,
	})
}

func (a *API) LoadRoomHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/room/load/")
	roomID := strings.TrimSuffix(path, "/")

	if roomID == "" {
		errorResponse(w, http.StatusBadRequest, "Room ID is required")
		return
	}

	state, err := a.database.GetRoomState(roomID)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to load room state")
		return
	}

	if state == nil {
		errorResponse(w, http.StatusNotFound, "Room not found")
		return
	}

	jsonResponse(w, http.StatusOK, state)
}

// DeleteSavedRoomHandler removes a persisted room and its snapshot.
// The live session, if any, is untouched.
func (a *API) DeleteSavedRoomHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/room/saved/")
	roomID := strings.TrimSuffix(path, "/")

	if roomID == "" {
		errorResponse(w, http.StatusBadRequest, "Room ID is required")
		return
	}

	if err := a.database.DeleteRoom(roomID); err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to delete room")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "Room deleted"})
}

func (a *API) SavedRoomsRouter(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/room/saved")

	// /api/room/saved or /api/room/saved/
	if path == "" || path == "/" {
		a.SavedRoomsHandler(w, r)
		return
	}

	// /api/room/saved/{id}
	a.DeleteSavedRoomHandler(w, r)
}

// SavedRoomsHandler lists persisted rooms, newest first.
func (a *API) SavedRoomsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	rooms, err := a.database.ListRooms(limit, offset)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to list rooms")
		return
	}

	type savedRoom struct {
		ID        string    `json:"id"`
		Name      string    `json:"name,omitempty"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
		Active    int       `json:"active_users"`
	}

	activeRooms := a.directory.ActiveRooms()
	response := make([]savedRoom, len(rooms))
	for i, rm := range rooms {
		response[i] = savedRoom{
			ID:        rm.ID,
			Name:      rm.Name,
			CreatedAt: rm.CreatedAt,
			UpdatedAt: rm.UpdatedAt,
			Active:    activeRooms[rm.ID],
		}
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"rooms":  response,
		"limit":  limit,
		"offset": offset,
	})
}
