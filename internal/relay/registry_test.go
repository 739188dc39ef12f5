package relay

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreate(t *testing.T) {
	rg := NewRegistry()

	rm, created := rg.GetOrCreate("r1")
	require.NotNil(t, rm)
	assert.True(t, created)

	again, created := rg.GetOrCreate("r1")
	assert.False(t, created)
	assert.Same(t, rm, again, "same key yields the same room")
	assert.Equal(t, 1, rg.Len())
}

func TestRegistryGetAbsent(t *testing.T) {
	rg := NewRegistry()
	_, ok := rg.Get("nope")
	assert.False(t, ok)
}

func TestRegistryConcurrentCreate(t *testing.T) {
	rg := NewRegistry()

	var wg sync.WaitGroup
	rooms := make([]*Room, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rooms[i], _ = rg.GetOrCreate("shared")
		}(i)
	}
	wg.Wait()

	for i := 1; i < 100; i++ {
		require.Same(t, rooms[0], rooms[i], "concurrent joins must not create two rooms")
	}
	assert.Equal(t, 1, rg.Len())
}

func TestRegistryRemoveIfEmpty(t *testing.T) {
	rg := NewRegistry()
	rm, _ := rg.GetOrCreate("r1")

	sub := NewSession(nil)
	sub.UserID = "u1"
	sub.Role = RoleSubscriber
	require.True(t, rm.addSubscriber(sub))

	assert.False(t, rg.RemoveIfEmpty("r1"), "occupied room stays")
	assert.Equal(t, 1, rg.Len())

	rm.removeMember(sub)
	assert.True(t, rg.RemoveIfEmpty("r1"))
	assert.Equal(t, 0, rg.Len())

	// Removed rooms reject late membership, forcing a retry on a fresh room
	assert.False(t, rm.addSubscriber(sub))

	assert.False(t, rg.RemoveIfEmpty("r1"), "second remove is a no-op")
}

func TestRegistryIndependentRooms(t *testing.T) {
	rg := NewRegistry()
	for i := 0; i < 10; i++ {
		rg.GetOrCreate(fmt.Sprintf("r%d", i))
	}
	assert.Equal(t, 10, rg.Len())
}
