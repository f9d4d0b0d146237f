package room

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"
)

var ErrRoomNotFound = errors.New("room not found")

const DefaultGracePeriod = 2 * time.Minute

// Directory is the authoritative map of live rooms and their
// participants. All mutation goes through its methods; the mutex is the
// serialization point that keeps membership changes for a room from
// interleaving.
//
// Rooms that drop to zero participants are not deleted immediately.
// A grace timer is armed so that a page reload or a leave event
// followed by the transport's own disconnect signal does not destroy
// room identity.
type Directory struct {
	mu      sync.Mutex
	rooms   map[string]*Room
	timers  *GraceTimer
	grace   time.Duration
	joinSeq uint64
}

func NewDirectory(grace time.Duration) *Directory {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Directory{
		rooms:  make(map[string]*Room),
		timers: NewGraceTimer(),
		grace:  grace,
	}
}

// GetOrCreate resolves a room, creating it only when the requester is
// host-eligible. The lock guarantees a single Room per id even when
// first joins race. The name is recorded on creation and ignored for an
// existing room.
func (d *Directory) GetOrCreate(roomID, name string, hostEligible bool) (created bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.rooms[roomID]; ok {
		return false, nil
	}
	if !hostEligible {
		return false, ErrRoomNotFound
	}
	d.rooms[roomID] = newRoom(roomID, name)
	return true, nil
}

// AddParticipant adds to an existing room and cancels any pending
// deletion. Returns ErrRoomNotFound if the room vanished between lookup
// and add; the caller re-requests via GetOrCreate.
func (d *Directory) AddParticipant(roomID string, p Participant) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now()
	}
	d.joinSeq++
	p.seq = d.joinSeq
	r.participants[p.ConnID] = &p
	d.timers.Cancel(roomID)
	return nil
}

// RemoveParticipant removes a participant if present. Removing an
// absent participant is a no-op, so an explicit leave followed by the
// transport's disconnect for the same connection is safe. An emptied
// room gets a grace timer instead of immediate deletion. Returns the
// remaining participants and whether anything was removed.
func (d *Directory) RemoveParticipant(roomID, connID string) ([]Participant, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[roomID]
	if !ok {
		return nil, false
	}
	_, present := r.participants[connID]
	delete(r.participants, connID)
	if len(r.participants) == 0 {
		d.timers.Arm(roomID, d.grace, func() { d.deleteIfStillEmpty(roomID) })
	}
	return snapshotLocked(r), present
}

// deleteIfStillEmpty re-checks emptiness under the lock before
// deleting: a join can race the final tick of the grace timer.
func (d *Directory) deleteIfStillEmpty(roomID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[roomID]
	if !ok || len(r.participants) > 0 {
		return
	}
	delete(d.rooms, roomID)
	log.Printf("Room %s reclaimed after grace period", roomID)
}

// Snapshot returns the room's participants in join order, or nil if the
// room is absent.
func (d *Directory) Snapshot(roomID string) []Participant {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[roomID]
	if !ok {
		return nil
	}
	return snapshotLocked(r)
}

func snapshotLocked(r *Room) []Participant {
	out := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (d *Directory) Exists(roomID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.rooms[roomID]
	return ok
}

// RoomName returns the display name set at creation, if any.
func (d *Directory) RoomName(roomID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[roomID]
	if !ok {
		return "", false
	}
	return r.Name, true
}

// ActiveRooms reports the participant count of every live room.
func (d *Directory) ActiveRooms() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	counts := make(map[string]int, len(d.rooms))
	for id, r := range d.rooms {
		counts[id] = len(r.participants)
	}
	return counts
}

func (d *Directory) RoomCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}

func (d *Directory) ParticipantCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, r := range d.rooms {
		total += len(r.participants)
	}
	return total
}

// Close stops all pending grace timers.
func (d *Directory) Close() {
	d.timers.StopAll()
}
