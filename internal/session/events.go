package session

import (
	"encoding/json"

	"github.com/codesync/backend/internal/room"
)

// Wire event names, matching the client's action table.
const (
	EventJoin         = "join"
	EventJoined       = "joined"
	EventRoomNotFound = "room-not-found"
	EventLeave        = "leave"
	EventDeparted     = "departed"
	EventCodeChange   = "code-change"
	EventLangChange   = "language-change"
	EventSyncRequest  = "sync-request"
	EventSyncResponse = "sync-response"
	EventCursor       = "cursor-position"
	EventTyping       = "user-typing"
	EventError        = "error"
)

// Envelope is the wire frame: an event name plus event-specific fields,
// kept raw until the handler knows what to decode.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinPayload struct {
	RoomID      string `json:"roomId"`
	RoomName    string `json:"roomName,omitempty"`
	DisplayName string `json:"displayName"`
	IsHost      bool   `json:"isHost"`
}

type JoinedPayload struct {
	RoomID       string             `json:"roomId"`
	Participants []room.Participant `json:"participants"`
	Participant  room.Participant   `json:"participant"`
}

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type DepartedPayload struct {
	RoomID       string `json:"roomId"`
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"displayName"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// roomScoped extracts just the routing field from a room-targeted
// payload; the rest is relayed verbatim.
type roomScoped struct {
	RoomID string `json:"roomId"`
}

// targetScoped extracts the routing field from a point-to-point
// payload.
type targetScoped struct {
	TargetID string `json:"targetId"`
}

func marshalEvent(event string, payload any) ([]byte, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Payload: p})
}
