package bus

import (
	"PRelay/tools/decode"

	"github.com/pkg/errors"
)

// Event kind tags carried in the payload's "type" field.
const (
	KindUser  = "user"
	KindGroup = "group"
)

// ChatPayload is a user-to-user message notification.
type ChatPayload struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
}

// GroupChatPayload is a group message notification. GroupID may be
// carried as group_id or, from older producers, as to_id.
type GroupChatPayload struct {
	FromID  string `json:"from_id"`
	GroupID string `json:"group_id"`
	ToID    string `json:"to_id"`
}

// PresencePayload is an online/offline/away status change.
type PresencePayload struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// TypingPayload is a typing indicator. For kind=user ToID is the
// recipient; for kind=group it is the group.
type TypingPayload struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Type   string `json:"type"`
	Typing bool   `json:"typing"`
}

// SeenPayload is a read receipt. For kind=user FromID is the ORIGINAL
// message sender and ToID the user who marked it seen; for kind=group
// FromID is the acknowledger and ToID the group.
type SeenPayload struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Type   string `json:"type"`
	Seen   bool   `json:"seen"`
}

// Message is the strict internal representation handed to the router:
// a tagged variant keyed by (channel, kind). Raw keeps the original
// payload for pass-through fan-out.
type Message struct {
	Channel string
	Kind    string
	Raw     map[string]any

	Chat      *ChatPayload
	GroupChat *GroupChatPayload
	Presence  *PresencePayload
	Typing    *TypingPayload
	Seen      *SeenPayload
}

// DecodeMessage narrows a parsed envelope into a Message. Everything
// that tolerates "anything might arrive" lives here; past this point
// payloads are typed. Unknown (channel, kind) pairs return
// ErrUnknownEvent so the subscriber can log and drop them.
func DecodeMessage(env *Envelope) (*Message, error) {
	data := env.InnerData()
	msg := &Message{Channel: env.Channel, Kind: env.Event, Raw: data}

	switch env.Channel {
	case ChannelPrivate:
		// legacy broadcast: re-emitted verbatim, any kind accepted
		return msg, nil

	case ChannelUserChat:
		p, err := decode.MapToStruct[ChatPayload](data)
		if err != nil {
			return nil, errors.Wrap(ErrBadEnvelope, err.Error())
		}
		if p.FromID == "" || p.ToID == "" {
			return nil, errors.Wrap(ErrBadEnvelope, "chat payload missing from_id/to_id")
		}
		msg.Chat = p
		return msg, nil

	case ChannelGroupChat:
		p, err := decode.MapToStruct[GroupChatPayload](data)
		if err != nil {
			return nil, errors.Wrap(ErrBadEnvelope, err.Error())
		}
		if p.GroupID == "" {
			p.GroupID = p.ToID
		}
		msg.GroupChat = p
		return msg, nil

	case ChannelPresence:
		p, err := decode.MapToStruct[PresencePayload](data)
		if err != nil {
			return nil, errors.Wrap(ErrBadEnvelope, err.Error())
		}
		msg.Presence = p
		return msg, nil

	case ChannelTyping:
		p, err := decode.MapToStruct[TypingPayload](data)
		if err != nil {
			return nil, errors.Wrap(ErrBadEnvelope, err.Error())
		}
		kind, kerr := kindOf(p.Type)
		if kerr != nil {
			return nil, kerr
		}
		msg.Kind = kind
		if p.ToID == "" {
			return nil, errors.Wrap(ErrBadEnvelope, "typing payload missing to_id")
		}
		msg.Typing = p
		return msg, nil

	case ChannelSeen:
		p, err := decode.MapToStruct[SeenPayload](data)
		if err != nil {
			return nil, errors.Wrap(ErrBadEnvelope, err.Error())
		}
		kind, kerr := kindOf(p.Type)
		if kerr != nil {
			return nil, kerr
		}
		msg.Kind = kind
		if p.FromID == "" || p.ToID == "" {
			return nil, errors.Wrap(ErrBadEnvelope, "seen payload missing from_id/to_id")
		}
		msg.Seen = p
		return msg, nil

	default:
		return nil, errors.Wrapf(ErrUnknownEvent, "channel=%s", env.Channel)
	}
}

func kindOf(t string) (string, error) {
	switch t {
	case KindUser, "":
		// older producers omit the type tag and mean user-to-user
		return KindUser, nil
	case KindGroup:
		return KindGroup, nil
	default:
		return "", errors.Wrapf(ErrUnknownEvent, "kind=%s", t)
	}
}
