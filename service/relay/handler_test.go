package relay

import (
	"testing"
	"time"

	"PRelay/global"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *global.AppConfig {
	return &global.AppConfig{
		GatewayID:      "relay-test",
		SocketPort:     8005,
		BusBackend:     global.BusBackendRedis,
		AllowedOrigins: []string{"*"},
		FanoutWorkers:  1, // single worker keeps delivery order deterministic
		FanoutQueue:    64,
		SendQueueSize:  16,
	}
}

// addTestClient registers a transport session without a real socket;
// handlers only ever touch the send queue.
func addTestClient(s *Server, connID string) *Client {
	c := NewClient(connID, nil, 16)
	s.addClient(c)
	return c
}

type outFrame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

func recvEvent(t *testing.T, c *Client) outFrame {
	t.Helper()
	select {
	case raw := <-c.Send:
		f, err := ParseFrame(raw)
		require.NoError(t, err)
		return outFrame{Event: f.Event, Data: f.Data}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event delivered to %s", c.ConnID)
		return outFrame{}
	}
}

func expectSilence(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.Send:
		t.Fatalf("unexpected delivery to %s: %s", c.ConnID, raw)
	case <-time.After(100 * time.Millisecond):
	}
}

func dispatch(t *testing.T, s *Server, c *Client, event string, data map[string]any) error {
	t.Helper()
	return s.disp.Dispatch(s, &Frame{Event: event, Data: data}, c)
}

func identify(t *testing.T, s *Server, c *Client, userID, name string) {
	t.Helper()
	require.NoError(t, dispatch(t, s, c, EvUserConnected,
		map[string]any{"user_id": userID, "user_name": name}))
}

func TestUserConnectedBroadcastsToOthersOnly(t *testing.T) {
	s := NewServer(testConfig())
	alice := addTestClient(s, "c-alice")
	bob := addTestClient(s, "c-bob")

	identify(t, s, bob, "bob", "Bob")
	recvEvent(t, alice) // bob's announcement

	identify(t, s, alice, "alice", "Alice")

	ev := recvEvent(t, bob)
	assert.Equal(t, EvUserOnline, ev.Event)
	assert.Equal(t, "alice", ev.Data["user_id"])
	assert.Equal(t, "Alice", ev.Data["user_name"])

	expectSilence(t, alice)
	assert.Equal(t, []string{"c-alice"}, s.reg.MembersOf(PersonalRoom("alice")))
}

func TestUserConnectedMissingUserIDIsDropped(t *testing.T) {
	s := NewServer(testConfig())
	c := addTestClient(s, "c1")

	err := dispatch(t, s, c, EvUserConnected, map[string]any{"user_name": "nameless"})
	require.Error(t, err)
	assert.False(t, c.Identified())
	assert.Equal(t, 0, s.reg.Len())
}

func TestJoinGroupIgnoredWhileAnonymous(t *testing.T) {
	s := NewServer(testConfig())
	c := addTestClient(s, "c1")

	require.NoError(t, dispatch(t, s, c, EvJoinGroup, map[string]any{"group_id": "7"}))
	assert.Empty(t, s.reg.MembersOf(GroupRoom("7")))
}

func TestJoinAndLeaveGroup(t *testing.T) {
	s := NewServer(testConfig())
	c := addTestClient(s, "c1")
	identify(t, s, c, "alice", "Alice")

	require.NoError(t, dispatch(t, s, c, EvJoinGroup, map[string]any{"group_id": "7"}))
	assert.Equal(t, []string{"c1"}, s.reg.MembersOf(GroupRoom("7")))

	require.NoError(t, dispatch(t, s, c, EvLeaveGroup, map[string]any{"group_id": "7"}))
	assert.Empty(t, s.reg.MembersOf(GroupRoom("7")))
}

func TestTypingUserReachesOnlyRecipient(t *testing.T) {
	s := NewServer(testConfig())
	alice := addTestClient(s, "c-alice")
	bob := addTestClient(s, "c-bob")
	carol := addTestClient(s, "c-carol")
	identify(t, s, alice, "alice", "Alice")
	identify(t, s, bob, "bob", "Bob")
	identify(t, s, carol, "carol", "Carol")
	drainPresence(alice, bob, carol)

	data := map[string]any{"from_id": "alice", "to_id": "bob", "type": "user", "typing": true}
	require.NoError(t, dispatch(t, s, alice, EvTyping, data))

	ev := recvEvent(t, bob)
	assert.Equal(t, EvClientTyping, ev.Event)
	assert.Equal(t, "alice", ev.Data["from_id"])

	expectSilence(t, carol)
}

func TestTypingGroupReachesGroupRoom(t *testing.T) {
	s := NewServer(testConfig())
	alice := addTestClient(s, "c-alice")
	bob := addTestClient(s, "c-bob")
	carol := addTestClient(s, "c-carol")
	identify(t, s, alice, "alice", "Alice")
	identify(t, s, bob, "bob", "Bob")
	identify(t, s, carol, "carol", "Carol")
	require.NoError(t, dispatch(t, s, alice, EvJoinGroup, map[string]any{"group_id": "7"}))
	require.NoError(t, dispatch(t, s, bob, EvJoinGroup, map[string]any{"group_id": "7"}))
	drainPresence(alice, bob, carol)

	data := map[string]any{"from_id": "alice", "to_id": "7", "type": "group", "typing": true}
	require.NoError(t, dispatch(t, s, carol, EvTyping, data))

	assert.Equal(t, EvGroupTyping, recvEvent(t, alice).Event)
	assert.Equal(t, EvGroupTyping, recvEvent(t, bob).Event)
	expectSilence(t, carol)
}

func TestSeenReachesOriginalSender(t *testing.T) {
	s := NewServer(testConfig())
	sender := addTestClient(s, "c-sender")
	acker := addTestClient(s, "c-acker")
	identify(t, s, sender, "sender", "S")
	identify(t, s, acker, "acker", "A")
	drainPresence(sender, acker)

	// acker marks sender's message as seen
	data := map[string]any{"from_id": "sender", "to_id": "acker", "type": "user"}
	require.NoError(t, dispatch(t, s, acker, EvSeen, data))

	ev := recvEvent(t, sender)
	assert.Equal(t, EvClientSeen, ev.Event)
	expectSilence(t, acker)
}

func TestSendMessageUpdatesBothContactLists(t *testing.T) {
	s := NewServer(testConfig())
	alice := addTestClient(s, "c-alice")
	bob := addTestClient(s, "c-bob")
	identify(t, s, alice, "alice", "Alice")
	identify(t, s, bob, "bob", "Bob")
	drainPresence(alice, bob)

	data := map[string]any{"sender_id": "alice", "receiver_id": "bob", "type": "user"}
	require.NoError(t, dispatch(t, s, alice, EvSendMessage, data))

	for _, c := range []*Client{alice, bob} {
		assert.Equal(t, EvClientContactItem, recvEvent(t, c).Event)
		assert.Equal(t, EvUpdateConversation, recvEvent(t, c).Event)
	}
}

func TestDisconnectBroadcastsAndCleansUp(t *testing.T) {
	s := NewServer(testConfig())
	alice := addTestClient(s, "c-alice")
	bob := addTestClient(s, "c-bob")
	identify(t, s, alice, "alice", "Alice")
	identify(t, s, bob, "bob", "Bob")
	require.NoError(t, dispatch(t, s, alice, EvJoinGroup, map[string]any{"group_id": "7"}))
	drainPresence(alice, bob)

	s.HandleDisconnect(alice)

	ev := recvEvent(t, bob)
	assert.Equal(t, EvUserDisconnect, ev.Event)
	assert.Equal(t, "alice", ev.Data["user_id"])
	assert.Equal(t, "Alice", ev.Data["user_name"])

	assert.Empty(t, s.reg.MembersOf(PersonalRoom("alice")))
	assert.Empty(t, s.reg.MembersOf(GroupRoom("7")))
	assert.Equal(t, 1, s.clientCount())
}

func TestDisconnectAnonymousIsSilent(t *testing.T) {
	s := NewServer(testConfig())
	anon := addTestClient(s, "c-anon")
	bob := addTestClient(s, "c-bob")
	identify(t, s, bob, "bob", "Bob")

	s.HandleDisconnect(anon)

	expectSilence(t, bob)
	assert.Equal(t, 1, s.clientCount())
}

func TestUnknownClientEventIsDropped(t *testing.T) {
	s := NewServer(testConfig())
	c := addTestClient(s, "c1")

	err := dispatch(t, s, c, "format-hard-drive", map[string]any{})
	require.Error(t, err)
}

// drainPresence empties queued userOnline announcements so tests can
// assert on the next event cleanly.
func drainPresence(clients ...*Client) {
	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		for _, c := range clients {
			select {
			case <-c.Send:
			default:
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
}
