package relay

import "sync"

// Registry is the in-memory room table. Creation is atomic per key and
// deletion only ever removes a room that is verifiably empty, so a roomId is
// always backed by at most one live Room.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// GetOrCreate returns the room for id, creating it on first sight.
// created reports whether this call brought the room into existence.
func (rg *Registry) GetOrCreate(id string) (rm *Room, created bool) {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	if rm, ok := rg.rooms[id]; ok {
		return rm, false
	}
	rm = newRoom(id)
	rg.rooms[id] = rm
	return rm, true
}

// Get returns the room for id if present; absence is not an error
func (rg *Registry) Get(id string) (*Room, bool) {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	rm, ok := rg.rooms[id]
	return rm, ok
}

// RemoveIfEmpty deletes the room when both the publisher slot and the
// subscriber set are empty. The room is marked closed under its own lock so
// a join racing against deletion retries against a fresh room.
func (rg *Registry) RemoveIfEmpty(id string) bool {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	rm, ok := rg.rooms[id]
	if !ok {
		return false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.publisher != nil || len(rm.subscribers) > 0 {
		return false
	}
	rm.closed = true
	delete(rg.rooms, id)
	return true
}

// Len reports the number of live rooms
func (rg *Registry) Len() int {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	return len(rg.rooms)
}
