package relay

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Client-originated socket event names.
const (
	EvUserConnected = "user-connected"
	EvJoinGroup     = "join-group"
	EvLeaveGroup    = "leave-group"
	EvTyping        = "typing"
	EvSeen          = "seen"
	EvSendMessage   = "sendMessage"
)

// Server-originated socket event names.
const (
	EvUserOnline         = "userOnline"
	EvUserDisconnect     = "user-disconnect"
	EvClientTyping       = "client-typing"
	EvGroupTyping        = "group-typing"
	EvClientSeen         = "client-seen"
	EvGroupSeen          = "group-seen"
	EvClientContactItem  = "client-contactItem"
	EvUpdateConversation = "update-conversation"
	EvUserChat           = "user-chat"
	EvGroupChat          = "group-chat"
	EvUserStatusUpdate   = "user-status-update"
	EvTypingIndicator    = "typing-indicator"
	EvGroupTypingIndic   = "group-typing-indicator"
	EvMessageSeen        = "message-seen"
	EvGroupMessageSeen   = "group-message-seen"
)

var ErrBadFrame = errors.New("relay: malformed client frame")

// Frame is one client-originated socket event: an event name plus a
// loose payload validated by the individual handlers.
type Frame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrap(ErrBadFrame, err.Error())
	}
	if f.Event == "" {
		return nil, errors.Wrap(ErrBadFrame, "missing event name")
	}
	if f.Data == nil {
		f.Data = map[string]any{}
	}
	return &f, nil
}

// EncodeEvent renders one outbound frame. Marshal errors can only come
// from non-serializable payloads, which the relay never produces.
func EncodeEvent(event string, payload any) []byte {
	b, err := json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}{Event: event, Data: payload})
	if err != nil {
		return nil
	}
	return b
}
