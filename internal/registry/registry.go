package registry

import "sync"

// Maps a connection identity to the display name the participant chose
// at join time. Pure lookup table, no lifecycle of its own.
type Registry struct {
	mu    sync.RWMutex
	names map[string]string
}

func New() *Registry {
	return &Registry{names: make(map[string]string)}
}

// Upserts the display name for a connection, overwriting any prior name
func (r *Registry) Register(connID, displayName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[connID] = displayName
}

// Returns the display name for a connection, if known
func (r *Registry) Lookup(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[connID]
	return name, ok
}

// Removes the entry; no-op if absent
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.names, connID)
}

// Number of registered connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
