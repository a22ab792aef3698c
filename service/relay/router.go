package relay

import (
	"PRelay/service/bus"
)

// Delivery is one fan-out decision: an outbound event aimed at a set of
// rooms or at every connection on this instance.
type Delivery struct {
	Rooms   []string
	All     bool
	Event   string
	Payload any
}

// Route decides which rooms receive which outbound event for one bus
// message. Pure function of the message and current registry state; the
// transport applies the result. Unknown inputs yield no deliveries.
func Route(msg *bus.Message, reg *Registry) []Delivery {
	switch msg.Channel {
	case bus.ChannelPrivate:
		// legacy catch-all: re-emit to everyone under <channel>:<kind>,
		// exactly what the old relay did
		return []Delivery{{
			All:     true,
			Event:   msg.Channel + ":" + msg.Kind,
			Payload: msg.Raw,
		}}

	case bus.ChannelUserChat:
		if msg.Chat == nil {
			return nil
		}
		// both parties get the same payload: the sender's other devices
		// need it to render the conversation too
		return []Delivery{{
			Rooms:   []string{PersonalRoom(msg.Chat.FromID), PersonalRoom(msg.Chat.ToID)},
			Event:   EvUserChat,
			Payload: msg.Raw,
		}}

	case bus.ChannelGroupChat:
		if msg.GroupChat == nil {
			return nil
		}
		if gid := msg.GroupChat.GroupID; gid != "" {
			if room := GroupRoom(gid); len(reg.MembersOf(room)) > 0 {
				return []Delivery{{
					Rooms:   []string{room},
					Event:   EvGroupChat,
					Payload: msg.Raw,
				}}
			}
		}
		// no verified membership on this instance: broadcast and let
		// clients filter by group id, over-delivery beats silent loss
		return []Delivery{{
			All:     true,
			Event:   EvGroupChat,
			Payload: msg.Raw,
		}}

	case bus.ChannelPresence:
		return []Delivery{{
			All:     true,
			Event:   EvUserStatusUpdate,
			Payload: msg.Raw,
		}}

	case bus.ChannelTyping:
		if msg.Typing == nil {
			return nil
		}
		if msg.Kind == bus.KindGroup {
			return []Delivery{{
				All:   true,
				Event: EvGroupTypingIndic,
				Payload: map[string]any{
					"senderId": msg.Typing.FromID,
					"groupId":  msg.Typing.ToID,
					"isTyping": msg.Typing.Typing,
				},
			}}
		}
		return []Delivery{{
			Rooms: []string{PersonalRoom(msg.Typing.ToID)},
			Event: EvTypingIndicator,
			Payload: map[string]any{
				"senderId": msg.Typing.FromID,
				"isTyping": msg.Typing.Typing,
			},
		}}

	case bus.ChannelSeen:
		if msg.Seen == nil {
			return nil
		}
		if msg.Kind == bus.KindGroup {
			return []Delivery{{
				All:   true,
				Event: EvGroupMessageSeen,
				Payload: map[string]any{
					"groupId":  msg.Seen.ToID,
					"seenById": msg.Seen.FromID,
					"seen":     true,
				},
			}}
		}
		// the receipt goes to the ORIGINAL sender (from_id), not to the
		// user who marked it seen: it tells the sender their message
		// was read
		return []Delivery{{
			Rooms: []string{PersonalRoom(msg.Seen.FromID)},
			Event: EvMessageSeen,
			Payload: map[string]any{
				"senderId": msg.Seen.FromID,
				"seenById": msg.Seen.ToID,
				"seen":     true,
			},
		}}

	default:
		return nil
	}
}
