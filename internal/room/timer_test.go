package room

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestGraceTimerFires(t *testing.T) {
	g := NewGraceTimer()
	fired := make(chan struct{})

	g.Arm("room", 10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Timer did not fire")
	}
}

func TestGraceTimerCancel(t *testing.T) {
	g := NewGraceTimer()
	var fired atomic.Bool

	g.Arm("room", 20*time.Millisecond, func() { fired.Store(true) })
	g.Cancel("room")

	time.Sleep(60 * time.Millisecond)
	if fired.Load() {
		t.Error("Cancelled timer fired")
	}

	// Cancel with nothing armed is a no-op
	g.Cancel("room")
	g.Cancel("never-armed")
}

func TestGraceTimerArmReplaces(t *testing.T) {
	g := NewGraceTimer()
	var first, second atomic.Bool

	g.Arm("room", 20*time.Millisecond, func() { first.Store(true) })
	g.Arm("room", 20*time.Millisecond, func() { second.Store(true) })

	time.Sleep(60 * time.Millisecond)
	if first.Load() {
		t.Error("Replaced timer fired")
	}
	if !second.Load() {
		t.Error("Replacement timer did not fire")
	}
}

func TestGraceTimerStopAll(t *testing.T) {
	g := NewGraceTimer()
	var count atomic.Int32

	for _, id := range []string{"a", "b", "c"} {
		g.Arm(id, 20*time.Millisecond, func() { count.Add(1) })
	}
	g.StopAll()

	time.Sleep(60 * time.Millisecond)
	if got := count.Load(); got != 0 {
		t.Errorf("Expected no timers to fire after StopAll, got %d", got)
	}
}

func TestGraceTimerIndependentRooms(t *testing.T) {
	g := NewGraceTimer()
	var a, b atomic.Bool

	g.Arm("a", 10*time.Millisecond, func() { a.Store(true) })
	g.Arm("b", 10*time.Millisecond, func() { b.Store(true) })
	g.Cancel("a")

	time.Sleep(50 * time.Millisecond)
	if a.Load() {
		t.Error("Cancelled room-a timer fired")
	}
	if !b.Load() {
		t.Error("Room-b timer should be unaffected by room-a cancel")
	}
}
