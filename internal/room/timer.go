package room

import (
	"sync"
	"time"
)

// GraceTimer holds at most one pending single-shot action per room.
// Arming again replaces the previous timer, so a room that empties and
// refills repeatedly never stacks timers.
type GraceTimer struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewGraceTimer() *GraceTimer {
	return &GraceTimer{timers: make(map[string]*time.Timer)}
}

// Arm schedules onExpire after delay, replacing any timer already armed
// for this room. A replaced timer that has already fired may still run
// its callback; onExpire must re-validate state before acting.
func (g *GraceTimer) Arm(roomID string, delay time.Duration, onExpire func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.timers[roomID]; ok {
		t.Stop()
	}
	g.timers[roomID] = time.AfterFunc(delay, func() {
		g.mu.Lock()
		delete(g.timers, roomID)
		g.mu.Unlock()
		onExpire()
	})
}

// Cancel stops the pending timer for a room; no-op if nothing is armed.
func (g *GraceTimer) Cancel(roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.timers[roomID]; ok {
		t.Stop()
		delete(g.timers, roomID)
	}
}

// StopAll cancels every pending timer.
func (g *GraceTimer) StopAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, t := range g.timers {
		t.Stop()
		delete(g.timers, id)
	}
}
