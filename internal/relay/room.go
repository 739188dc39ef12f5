package relay

import "sync"

// Room holds at most one publisher and any number of subscribers. The last
// stored location outlives the publisher that produced it, so a replacement
// publisher inherits continuity.
//
// All mutation happens under the room's own lock; operations on different
// rooms never contend. closed marks a room the registry has already deleted,
// so a racing join can detect it and create a fresh room instead.
type Room struct {
	id string

	mu           sync.RWMutex
	closed       bool
	publisher    *Session
	lastLocation *Location
	subscribers  map[string]*Session // keyed by user id
}

func newRoom(id string) *Room {
	return &Room{id: id, subscribers: make(map[string]*Session)}
}

func (r *Room) ID() string { return r.id }

// installResult reports what happened to a publisher join.
type installResult int

const (
	installOK installResult = iota
	installRejected
	installClosed
)

// installPublisher puts s into the publisher slot. Under the takeover policy
// an incumbent is displaced silently; under reject, the incumbent stays and
// the joiner is not installed.
func (r *Room) installPublisher(s *Session, policy Policy) installResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return installClosed
	}
	if policy == PolicyReject && r.publisher != nil && r.publisher != s {
		return installRejected
	}
	r.publisher = s
	return installOK
}

// addSubscriber registers s; returns false if the room is already deleted
func (r *Room) addSubscriber(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.subscribers[s.UserID] = s
	return true
}

// removeMember detaches s from whichever slot it holds. Idempotent: a second
// call for the same session reports removed=false and changes nothing. The
// stored location is deliberately kept when the publisher goes.
func (r *Room) removeMember(s *Session) (removed, wasPublisher bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.publisher == s {
		r.publisher = nil
		return true, true
	}
	if cur, ok := r.subscribers[s.UserID]; ok && cur == s {
		delete(r.subscribers, s.UserID)
		return true, false
	}
	return false, false
}

// acceptLocation stores loc as the room's latest if s is still the current
// publisher. A displaced or never-installed publisher fails the identity
// check and mutates nothing.
func (r *Room) acceptLocation(s *Session, loc Location) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.publisher == nil || r.publisher.UserID != s.UserID {
		return false
	}
	r.lastLocation = &loc
	return true
}

// seedLocation installs a restored location, only while the room has none.
// Fresh in-memory state always wins over a durable snapshot.
func (r *Room) seedLocation(loc Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed && r.lastLocation == nil {
		r.lastLocation = &loc
	}
}

// location returns a copy of the last stored location
func (r *Room) location() (Location, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.lastLocation == nil {
		return Location{}, false
	}
	return *r.lastLocation, true
}

// publisherID returns the current publisher's user id, if any
func (r *Room) publisherID() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.publisher == nil {
		return "", false
	}
	return r.publisher.UserID, true
}

// State builds the room-state snapshot sent to joiners and the rooms API
func (r *Room) State() RoomState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := RoomState{RoomID: r.id, SubscriberCount: len(r.subscribers)}
	if r.publisher != nil {
		ref := &PublisherRef{ID: r.publisher.UserID}
		if r.lastLocation != nil {
			loc := *r.lastLocation
			ref.Location = &loc
		}
		st.Publisher = ref
	}
	return st
}

// Snapshot is the copy handed to the persistence gateway; never a live
// reference into the room.
func (r *Room) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := Snapshot{RoomID: r.id, SubscriberCount: len(r.subscribers)}
	if r.publisher != nil {
		snap.PublisherID = r.publisher.UserID
	}
	if r.lastLocation != nil {
		loc := *r.lastLocation
		snap.Location = &loc
	}
	return snap
}

// broadcast fans env out to every member except the excluded session.
// Sends go through non-blocking per-connection queues, so holding the read
// lock here never waits on the network.
func (r *Room) broadcast(env Envelope, except *Session) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.publisher != nil && r.publisher != except {
		r.publisher.Send(env)
	}
	for _, s := range r.subscribers {
		if s != except {
			s.Send(env)
		}
	}
}

// fanoutSubscribers delivers env to subscribers only (updates are never
// echoed back to the publisher)
func (r *Room) fanoutSubscribers(env Envelope) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.subscribers {
		s.Send(env)
	}
}
