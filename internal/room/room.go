package room

import "time"

// A participant's presence in a room, keyed by connection identity.
// Owned by exactly one room at a time.
type Participant struct {
	ConnID      string    `json:"connectionId"`
	DisplayName string    `json:"displayName"`
	IsHost      bool      `json:"isHost"`
	JoinedAt    time.Time `json:"joinedAt"`

	// Join order tie-breaker assigned by the directory. Wall-clock
	// timestamps can collide within a tick; this cannot.
	seq uint64
}

// A live collaborative session. Membership is mutated only through the
// Directory, which holds the lock.
type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time

	participants map[string]*Participant
}

func newRoom(id, name string) *Room {
	return &Room{
		ID:           id,
		Name:         name,
		CreatedAt:    time.Now(),
		participants: make(map[string]*Participant),
	}
}
