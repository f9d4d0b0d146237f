package session

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/codesync/backend/internal/registry"
	"github.com/codesync/backend/internal/room"
)

// Conn is the transport's view of one connected client. Send must not
// block; delivery is best-effort and a full buffer is reported as an
// error, not waited out.
type Conn interface {
	ID() string
	Send(data []byte) error
}

type frame struct {
	connID string
	data   []byte
}

// Coordinator is the protocol layer on top of the room directory and
// the connection registry. It owns the join/leave/disconnect handshake,
// presence broadcasts and code/language relays.
//
// All membership mutation and broadcast-target computation happens on
// the single Run goroutine, so two mutations against the same room
// never interleave and a join's own `joined` broadcast always sees the
// joiner in the roster.
type Coordinator struct {
	directory *room.Directory
	registry  *registry.Registry

	attach   chan Conn
	detach   chan string
	inbound  chan frame
	done     chan struct{}
	stopOnce sync.Once

	// conns is mutated only on the Run goroutine; the mutex exists so
	// stats readers can count concurrently.
	mu    sync.RWMutex
	conns map[string]Conn

	// byConn resolves which room a connection belongs to when the
	// transport reports a disconnect without one. Routing state only,
	// never a membership authority.
	byConn map[string]string
}

func New(directory *room.Directory, reg *registry.Registry) *Coordinator {
	return &Coordinator{
		directory: directory,
		registry:  reg,
		attach:    make(chan Conn),
		detach:    make(chan string),
		inbound:   make(chan frame, 256),
		done:      make(chan struct{}),
		conns:     make(map[string]Conn),
		byConn:    make(map[string]string),
	}
}

// Attach hands a new connection to the coordinator.
func (c *Coordinator) Attach(conn Conn) {
	select {
	case c.attach <- conn:
	case <-c.done:
	}
}

// Detach reports a transport-level disconnect. Idempotent with an
// explicit leave that may already have run for the same connection.
func (c *Coordinator) Detach(connID string) {
	select {
	case c.detach <- connID:
	case <-c.done:
	}
}

// Dispatch queues an inbound protocol frame for handling.
func (c *Coordinator) Dispatch(connID string, data []byte) {
	select {
	case c.inbound <- frame{connID: connID, data: data}:
	case <-c.done:
	}
}

func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// ConnectionCount reports attached transport connections.
func (c *Coordinator) ConnectionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns)
}

// Run drains the event channels until Stop. Handlers are short and
// non-blocking; anything slow lives outside this loop.
func (c *Coordinator) Run() {
	for {
		select {
		case conn := <-c.attach:
			c.mu.Lock()
			c.conns[conn.ID()] = conn
			c.mu.Unlock()

		case connID := <-c.detach:
			c.handleDisconnect(connID)
			c.mu.Lock()
			delete(c.conns, connID)
			c.mu.Unlock()

		case f := <-c.inbound:
			c.handleFrame(f.connID, f.data)

		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) handleFrame(connID string, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
		c.sendError(connID, "malformed message")
		return
	}

	switch env.Event {
	case EventJoin:
		c.handleJoin(connID, env.Payload)
	case EventLeave:
		c.handleLeave(connID, env.Payload)
	case EventCodeChange, EventLangChange, EventCursor, EventTyping:
		c.relayToRoom(connID, env.Event, env.Payload, data)
	case EventSyncRequest, EventSyncResponse:
		c.relayToTarget(connID, env.Event, env.Payload, data)
	default:
		c.sendError(connID, "unknown event: "+env.Event)
	}
}

func (c *Coordinator) handleJoin(connID string, raw json.RawMessage) {
	var p JoinPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" || p.DisplayName == "" {
		c.sendError(connID, "join requires roomId and displayName")
		return
	}

	// A connection owns at most one room; a join while still joined
	// elsewhere is an implicit leave of the old room.
	if prev, ok := c.byConn[connID]; ok && prev != p.RoomID {
		c.removeAndAnnounce(connID, prev)
		delete(c.byConn, connID)
	}

	part := room.Participant{
		ConnID:      connID,
		DisplayName: p.DisplayName,
		IsHost:      p.IsHost,
		JoinedAt:    time.Now(),
	}

	var created bool
	for attempt := 0; ; attempt++ {
		var err error
		created, err = c.directory.GetOrCreate(p.RoomID, p.RoomName, p.IsHost)
		if errors.Is(err, room.ErrRoomNotFound) {
			c.sendEvent(connID, EventRoomNotFound, RoomPayload{RoomID: p.RoomID})
			return
		}
		err = c.directory.AddParticipant(p.RoomID, part)
		if err == nil {
			break
		}
		// The grace timer reclaimed the room between resolve and add;
		// re-resolve once.
		if attempt > 0 {
			log.Printf("Join failed for %s in room %s: %v", connID, p.RoomID, err)
			c.sendEvent(connID, EventRoomNotFound, RoomPayload{RoomID: p.RoomID})
			return
		}
	}

	c.registry.Register(connID, p.DisplayName)
	c.byConn[connID] = p.RoomID

	if created {
		log.Printf("Room %s created by %s", p.RoomID, p.DisplayName)
	}

	// Everyone in the room, the joiner included, gets the same joined
	// frame: existing members learn of the newcomer and the newcomer
	// gets the full roster in one consistent message. The newcomer then
	// requests a content sync from a peer in the roster; the server
	// only relays that exchange.
	snap := c.directory.Snapshot(p.RoomID)
	c.broadcast(p.RoomID, "", EventJoined, JoinedPayload{
		RoomID:       p.RoomID,
		Participants: snap,
		Participant:  part,
	})
	log.Printf("Client %s joined room %s (total: %d)", connID, p.RoomID, len(snap))
}

func (c *Coordinator) handleLeave(connID string, raw json.RawMessage) {
	var p RoomPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" {
		c.sendError(connID, "leave requires roomId")
		return
	}
	// A leave naming a room the connection never joined must not wipe
	// its registered name while it is still a member elsewhere.
	if removed := c.removeAndAnnounce(connID, p.RoomID); removed {
		if c.byConn[connID] == p.RoomID {
			delete(c.byConn, connID)
		}
		c.registry.Unregister(connID)
	}
}

// handleDisconnect resolves the room from the coordinator's own
// bookkeeping; the transport supplies only the connection identity.
func (c *Coordinator) handleDisconnect(connID string) {
	if roomID, ok := c.byConn[connID]; ok {
		c.removeAndAnnounce(connID, roomID)
		delete(c.byConn, connID)
	}
	c.registry.Unregister(connID)
}

// removeAndAnnounce is the single removal path shared by explicit leave
// and transport disconnect. Removing an already-absent participant is a
// no-op and announces nothing. Reports whether anything was removed.
func (c *Coordinator) removeAndAnnounce(connID, roomID string) bool {
	name, _ := c.registry.Lookup(connID)
	remaining, removed := c.directory.RemoveParticipant(roomID, connID)
	if !removed {
		return false
	}
	c.send(remaining, "", EventDeparted, DepartedPayload{
		RoomID:       roomID,
		ConnectionID: connID,
		DisplayName:  name,
	})
	log.Printf("Client %s left room %s (remaining: %d)", connID, roomID, len(remaining))
	return true
}

// relayToRoom rebroadcasts the original frame verbatim to every other
// member of the sender's room. Content is opaque, last writer wins.
func (c *Coordinator) relayToRoom(connID, event string, raw json.RawMessage, data []byte) {
	var scope roomScoped
	if err := json.Unmarshal(raw, &scope); err != nil || scope.RoomID == "" {
		c.sendError(connID, event+" requires roomId")
		return
	}
	if c.byConn[connID] != scope.RoomID {
		c.sendError(connID, "not joined to room "+scope.RoomID)
		return
	}
	for _, p := range c.directory.Snapshot(scope.RoomID) {
		if p.ConnID == connID {
			continue
		}
		c.sendRaw(p.ConnID, data)
	}
}

// relayToTarget forwards a frame to exactly one connection. Best
// effort: a vanished target is logged and dropped, never surfaced to
// the sender as a hard error.
func (c *Coordinator) relayToTarget(connID, event string, raw json.RawMessage, data []byte) {
	var scope targetScoped
	if err := json.Unmarshal(raw, &scope); err != nil || scope.TargetID == "" {
		c.sendError(connID, event+" requires targetId")
		return
	}
	c.mu.RLock()
	conn, ok := c.conns[scope.TargetID]
	c.mu.RUnlock()
	if !ok {
		log.Printf("Relay %s from %s dropped: target %s not connected", event, connID, scope.TargetID)
		return
	}
	if err := conn.Send(data); err != nil {
		log.Printf("Relay %s to %s failed: %v", event, scope.TargetID, err)
	}
}

// broadcast sends one event to every current member of a room, minus
// excludeID when set. The target list comes from the directory after
// the triggering mutation has been applied.
func (c *Coordinator) broadcast(roomID, excludeID, event string, payload any) {
	c.send(c.directory.Snapshot(roomID), excludeID, event, payload)
}

func (c *Coordinator) send(targets []room.Participant, excludeID, event string, payload any) {
	data, err := marshalEvent(event, payload)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", event, err)
		return
	}
	for _, p := range targets {
		if p.ConnID == excludeID {
			continue
		}
		c.sendRaw(p.ConnID, data)
	}
}

func (c *Coordinator) sendEvent(connID, event string, payload any) {
	data, err := marshalEvent(event, payload)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", event, err)
		return
	}
	c.sendRaw(connID, data)
}

func (c *Coordinator) sendError(connID, message string) {
	c.sendEvent(connID, EventError, ErrorPayload{Message: message})
}

func (c *Coordinator) sendRaw(connID string, data []byte) {
	c.mu.RLock()
	conn, ok := c.conns[connID]
	c.mu.RUnlock()
	if !ok {
		return
	}
	if err := conn.Send(data); err != nil {
		log.Printf("Send to %s failed: %v", connID, err)
	}
}
