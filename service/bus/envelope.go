package bus

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Channel names the relay subscribes to. These are fixed by the web
// application's broadcaster; the relay enumerates them once at startup.
const (
	ChannelPrivate   = "private-channel"    // legacy catch-all broadcast
	ChannelUserChat  = "chat-channel"       // user-to-user messages
	ChannelGroupChat = "group-chat-channel" // group messages
	ChannelPresence  = "user-status"        // online/offline/away
	ChannelTyping    = "typing-indicators"  // typing start/stop
	ChannelSeen      = "message-seen"       // read receipts
)

// AllChannels returns the fixed channel set, in subscription order.
func AllChannels() []string {
	return []string{
		ChannelPrivate,
		ChannelUserChat,
		ChannelGroupChat,
		ChannelPresence,
		ChannelTyping,
		ChannelSeen,
	}
}

var (
	ErrBadEnvelope  = errors.New("bus: malformed envelope")
	ErrUnknownEvent = errors.New("bus: unknown channel/event kind")
)

// Envelope is the raw unit received from the bus: an event tag plus a
// loosely-typed payload whose shape depends on (channel, kind).
type Envelope struct {
	Channel string         `json:"-"`
	Event   string         `json:"event"`
	Data    map[string]any `json:"data"`
}

// ParseEnvelope decodes one raw bus message. The payload stays dynamic
// here; DecodeMessage narrows it into a typed variant.
func ParseEnvelope(channel string, raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(ErrBadEnvelope, err.Error())
	}
	if env.Event == "" {
		return nil, errors.Wrap(ErrBadEnvelope, "missing event tag")
	}
	env.Channel = channel
	if env.Data == nil {
		env.Data = map[string]any{}
	}
	return &env, nil
}

// InnerData unwraps the broadcaster's nested data envelope
// ({"data":{"data":{...}}}) when present; otherwise returns Data as-is.
func (e *Envelope) InnerData() map[string]any {
	if inner, ok := e.Data["data"].(map[string]any); ok {
		return inner
	}
	return e.Data
}
