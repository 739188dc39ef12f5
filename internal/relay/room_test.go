package relay

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publisherSession(userID string) *Session {
	s := NewSession(nil)
	s.UserID = userID
	s.Role = RolePublisher
	return s
}

func subscriberSession(userID string) *Session {
	s := NewSession(nil)
	s.UserID = userID
	s.Role = RoleSubscriber
	return s
}

func TestRoomPublisherSlotHoldsOne(t *testing.T) {
	rm := newRoom("r1")

	p1 := publisherSession("p1")
	p2 := publisherSession("p2")
	require.Equal(t, installOK, rm.installPublisher(p1, PolicyTakeover))
	require.Equal(t, installOK, rm.installPublisher(p2, PolicyTakeover))

	id, ok := rm.publisherID()
	require.True(t, ok)
	assert.Equal(t, "p2", id, "last joiner wins under takeover")
}

func TestRoomPublisherSlotConcurrentInstall(t *testing.T) {
	rm := newRoom("r1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rm.installPublisher(publisherSession("p"), PolicyTakeover)
		}(i)
	}
	wg.Wait()

	rm.mu.RLock()
	defer rm.mu.RUnlock()
	assert.NotNil(t, rm.publisher, "slot holds exactly one identity after the race")
}

func TestRoomRejectPolicyKeepsIncumbent(t *testing.T) {
	rm := newRoom("r1")

	p1 := publisherSession("p1")
	p2 := publisherSession("p2")
	require.Equal(t, installOK, rm.installPublisher(p1, PolicyReject))
	assert.Equal(t, installRejected, rm.installPublisher(p2, PolicyReject))

	id, _ := rm.publisherID()
	assert.Equal(t, "p1", id)

	// Re-installing the incumbent itself is fine
	assert.Equal(t, installOK, rm.installPublisher(p1, PolicyReject))
}

func TestRoomLocationSurvivesPublisherChange(t *testing.T) {
	rm := newRoom("r1")

	p1 := publisherSession("p1")
	require.Equal(t, installOK, rm.installPublisher(p1, PolicyTakeover))
	loc := NewLocation(40.71, -74.0, 14, 0, 1000)
	require.True(t, rm.acceptLocation(p1, loc))

	// Publisher leaves; the location stays for the next one
	removed, wasPublisher := rm.removeMember(p1)
	require.True(t, removed)
	require.True(t, wasPublisher)

	got, ok := rm.location()
	require.True(t, ok)
	assert.Equal(t, loc, got)

	p2 := publisherSession("p2")
	require.Equal(t, installOK, rm.installPublisher(p2, PolicyTakeover))
	st := rm.State()
	require.NotNil(t, st.Publisher)
	assert.Equal(t, "p2", st.Publisher.ID)
	require.NotNil(t, st.Publisher.Location)
	assert.Equal(t, loc, *st.Publisher.Location)
}

func TestRoomAcceptLocationGuards(t *testing.T) {
	rm := newRoom("r1")
	loc := NewLocation(1, 2, 3, 0, 0)

	p1 := publisherSession("p1")
	assert.False(t, rm.acceptLocation(p1, loc), "no publisher installed yet")

	require.Equal(t, installOK, rm.installPublisher(p1, PolicyTakeover))
	stale := publisherSession("someone-else")
	assert.False(t, rm.acceptLocation(stale, loc), "identity mismatch is dropped")
	assert.True(t, rm.acceptLocation(p1, loc))
}

func TestRoomRemoveMemberIdempotent(t *testing.T) {
	rm := newRoom("r1")
	s := subscriberSession("s1")
	require.True(t, rm.addSubscriber(s))

	removed, _ := rm.removeMember(s)
	assert.True(t, removed)
	removed, _ = rm.removeMember(s)
	assert.False(t, removed, "second removal is a no-op")
}

func TestRoomRemoveDisplacedPublisherIsNoop(t *testing.T) {
	rm := newRoom("r1")

	p1 := publisherSession("p1")
	p2 := publisherSession("p2")
	require.Equal(t, installOK, rm.installPublisher(p1, PolicyTakeover))
	require.Equal(t, installOK, rm.installPublisher(p2, PolicyTakeover))

	// The displaced connection disconnecting must not clear the new slot
	removed, _ := rm.removeMember(p1)
	assert.False(t, removed)
	id, _ := rm.publisherID()
	assert.Equal(t, "p2", id)
}

func TestRoomSnapshotIsACopy(t *testing.T) {
	rm := newRoom("r1")
	p := publisherSession("p1")
	require.Equal(t, installOK, rm.installPublisher(p, PolicyTakeover))
	require.True(t, rm.acceptLocation(p, NewLocation(1, 2, 3, 4, 5)))

	snap := rm.Snapshot()
	require.NotNil(t, snap.Location)
	snap.Location.Lat = 99

	got, _ := rm.location()
	assert.Equal(t, 1.0, got.Lat, "mutating the snapshot must not touch the room")
}

func TestRoomSeedLocationNeverOverrules(t *testing.T) {
	rm := newRoom("r1")
	p := publisherSession("p1")
	require.Equal(t, installOK, rm.installPublisher(p, PolicyTakeover))

	fresh := NewLocation(10, 20, 5, 0, 2000)
	require.True(t, rm.acceptLocation(p, fresh))

	rm.seedLocation(NewLocation(1, 1, 1, 0, 1))
	got, _ := rm.location()
	assert.Equal(t, fresh, got, "durable state never beats in-memory state")
}
