package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A malformed payload must be dropped without disturbing delivery of
// the next valid message on the same or any other channel.
func TestDispatchRawSurvivesMalformedMessages(t *testing.T) {
	var got []*Message
	h := func(m *Message) { got = append(got, m) }

	dispatchRaw(ChannelUserChat, []byte(`not json at all`), h)
	dispatchRaw(ChannelTyping, []byte(`{"event":"x","data":{"type":"starship"}}`), h)
	dispatchRaw(ChannelUserChat,
		[]byte(`{"event":"message.sent","data":{"from_id":"1","to_id":"2"}}`), h)
	dispatchRaw(ChannelPresence,
		[]byte(`{"event":"user.status","data":{"user_id":"1","status":"online"}}`), h)

	require.Len(t, got, 2)
	assert.Equal(t, ChannelUserChat, got[0].Channel)
	assert.Equal(t, ChannelPresence, got[1].Channel)
}

func TestAllChannelsCoversTheFixedSet(t *testing.T) {
	assert.Equal(t, []string{
		ChannelPrivate,
		ChannelUserChat,
		ChannelGroupChat,
		ChannelPresence,
		ChannelTyping,
		ChannelSeen,
	}, AllChannels())
}
