package relay

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkSymmetry asserts the dual-mapping invariant: a connection is in
// a room's member set iff the room is in the connection's room set.
func checkSymmetry(t *testing.T, r *Registry) {
	t.Helper()
	r.mu.RLock()
	defer r.mu.RUnlock()

	for connID, s := range r.byConn {
		for roomID := range s.rooms {
			members, ok := r.rooms[roomID]
			require.True(t, ok, "room %s missing from room index", roomID)
			_, in := members[connID]
			require.True(t, in, "conn %s not in members of %s", connID, roomID)
		}
	}
	for roomID, members := range r.rooms {
		require.NotEmpty(t, members, "empty room %s should have been removed", roomID)
		for connID := range members {
			s, ok := r.byConn[connID]
			require.True(t, ok, "room %s holds unknown conn %s", roomID, connID)
			_, in := s.rooms[roomID]
			require.True(t, in, "room %s not in rooms of conn %s", roomID, connID)
		}
	}
}

func TestRegisterAutoJoinsPersonalRoom(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "alice", "Alice")

	assert.Equal(t, []string{"c1"}, r.MembersOf(PersonalRoom("alice")))
	assert.Equal(t, []string{PersonalRoom("alice")}, r.RoomsOf("c1"))
	checkSymmetry(t, r)
}

func TestRegisterIsIdempotentPerConnection(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "alice", "Alice")
	r.Register("c1", "alice", "Alice A.")

	assert.Equal(t, 1, r.Len())
	assert.Len(t, r.MembersOf(PersonalRoom("alice")), 1)

	_, name, ok := r.Identity("c1")
	require.True(t, ok)
	assert.Equal(t, "Alice A.", name)
	checkSymmetry(t, r)
}

func TestRegisterReannounceMovesIdentity(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "alice", "Alice")
	r.Register("c1", "bob", "Bob")

	assert.Empty(t, r.MembersOf(PersonalRoom("alice")))
	assert.Equal(t, []string{"c1"}, r.MembersOf(PersonalRoom("bob")))
	assert.Empty(t, r.SessionsOf("alice"))
	checkSymmetry(t, r)
}

func TestJoinLeaveRoom(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "alice", "Alice")

	require.True(t, r.JoinRoom("c1", GroupRoom("7")))
	assert.False(t, r.JoinRoom("c1", GroupRoom("7")), "second join is a no-op")
	assert.ElementsMatch(t, []string{PersonalRoom("alice"), GroupRoom("7")}, r.RoomsOf("c1"))
	checkSymmetry(t, r)

	require.True(t, r.LeaveRoom("c1", GroupRoom("7")))
	assert.False(t, r.LeaveRoom("c1", GroupRoom("7")), "second leave is a no-op")
	assert.Empty(t, r.MembersOf(GroupRoom("7")))
	checkSymmetry(t, r)
}

func TestJoinRoomUnknownConnection(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.JoinRoom("ghost", GroupRoom("7")))
	assert.Empty(t, r.MembersOf(GroupRoom("7")))
}

func TestDeregisterRemovesFromEveryRoom(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "alice", "Alice")
	r.JoinRoom("c1", GroupRoom("7"))
	r.JoinRoom("c1", GroupRoom("8"))

	userID, name, ok := r.Deregister("c1")
	require.True(t, ok)
	assert.Equal(t, "alice", userID)
	assert.Equal(t, "Alice", name)

	assert.Empty(t, r.MembersOf(PersonalRoom("alice")))
	assert.Empty(t, r.MembersOf(GroupRoom("7")))
	assert.Empty(t, r.MembersOf(GroupRoom("8")))
	assert.Equal(t, 0, r.Len())
	checkSymmetry(t, r)
}

func TestDeregisterUnknownConnectionIsNoOp(t *testing.T) {
	r := NewRegistry()
	_, _, ok := r.Deregister("ghost")
	assert.False(t, ok)
}

func TestTwoDevicesShareThePersonalRoom(t *testing.T) {
	r := NewRegistry()
	r.Register("phone", "alice", "Alice")
	r.Register("laptop", "alice", "Alice")

	assert.ElementsMatch(t, []string{"phone", "laptop"}, r.MembersOf(PersonalRoom("alice")))
	assert.ElementsMatch(t, []string{"phone", "laptop"}, r.SessionsOf("alice"))

	// one device going away leaves the other reachable
	_, _, ok := r.Deregister("phone")
	require.True(t, ok)
	assert.Equal(t, []string{"laptop"}, r.MembersOf(PersonalRoom("alice")))
	checkSymmetry(t, r)
}

func TestMembersOfReturnsSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "alice", "Alice")
	r.Register("c2", "bob", "Bob")
	r.JoinRoom("c1", GroupRoom("7"))
	r.JoinRoom("c2", GroupRoom("7"))

	snap := r.MembersOf(GroupRoom("7"))
	r.LeaveRoom("c1", GroupRoom("7"))

	// the snapshot is unaffected by the mutation after it was taken
	assert.ElementsMatch(t, []string{"c1", "c2"}, snap)
	assert.Equal(t, []string{"c2"}, r.MembersOf(GroupRoom("7")))
}

// TestSymmetryUnderConcurrentChurn hammers the registry from several
// goroutines and checks the dual mapping afterwards.
func TestSymmetryUnderConcurrentChurn(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			connID := fmt.Sprintf("c%d", i)
			userID := fmt.Sprintf("u%d", i%3)
			for n := 0; n < 200; n++ {
				r.Register(connID, userID, "user")
				r.JoinRoom(connID, GroupRoom("7"))
				r.MembersOf(GroupRoom("7"))
				r.LeaveRoom(connID, GroupRoom("7"))
				if n%5 == 0 {
					r.Deregister(connID)
				}
			}
		}()
	}
	wg.Wait()
	checkSymmetry(t, r)
}
