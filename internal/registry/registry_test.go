package registry

import (
	"sync"
	"testing"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New()

	if _, ok := r.Lookup("c1"); ok {
		t.Error("Lookup on empty registry should miss")
	}

	r.Register("c1", "alice")
	name, ok := r.Lookup("c1")
	if !ok || name != "alice" {
		t.Errorf("Expected alice, got %q (ok=%v)", name, ok)
	}

	// Register is an upsert
	r.Register("c1", "alice2")
	if name, _ := r.Lookup("c1"); name != "alice2" {
		t.Errorf("Expected overwritten name alice2, got %q", name)
	}
}

func TestUnregister(t *testing.T) {
	r := New()
	r.Register("c1", "alice")
	r.Unregister("c1")

	if _, ok := r.Lookup("c1"); ok {
		t.Error("Lookup after unregister should miss")
	}

	// No-op if absent
	r.Unregister("c1")
	r.Unregister("never-registered")

	if r.Count() != 0 {
		t.Errorf("Expected empty registry, got %d entries", r.Count())
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%26))
			r.Register(id, "user")
			r.Lookup(id)
			r.Unregister(id)
		}(i)
	}
	wg.Wait()
}
