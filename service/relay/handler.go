package relay

import (
	"PRelay/logger"
	"PRelay/service/bus"
	"PRelay/tools/decode"

	"github.com/pkg/errors"
)

// Client-announced payload shapes. Decoded weakly: browser clients send
// numeric ids as numbers or strings interchangeably.
type connectPayload struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

type groupPayload struct {
	GroupID string `json:"group_id"`
}

type contactUpdatePayload struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Type       string `json:"type"`
}

func (s *Server) registerHandlers() {
	s.disp.Register(EvUserConnected, handleUserConnected)
	s.disp.Register(EvJoinGroup, handleJoinGroup)
	s.disp.Register(EvLeaveGroup, handleLeaveGroup)
	s.disp.Register(EvTyping, handleTyping)
	s.disp.Register(EvSeen, handleSeen)
	s.disp.Register(EvSendMessage, handleSendMessage)
}

// handleUserConnected moves the connection from anonymous to identified:
// register, auto-join the personal room, tell everyone else.
func handleUserConnected(s *Server, f *Frame, c *Client) error {
	p, err := decode.MapToStruct[connectPayload](f.Data)
	if err != nil {
		return errors.Wrap(ErrBadFrame, err.Error())
	}
	if p.UserID == "" {
		return errors.Wrap(ErrBadFrame, "user-connected missing user_id")
	}

	c.UserID = p.UserID
	c.Name = p.UserName
	s.reg.Register(c.ConnID, p.UserID, p.UserName)
	logger.Infof("[relay] user connected user=%s name=%s conn=%s", p.UserID, p.UserName, c.ConnID)

	s.BroadcastToAllExcept(c.ConnID, EvUserOnline, map[string]any{
		"user_id":   p.UserID,
		"user_name": p.UserName,
	})
	return nil
}

func handleJoinGroup(s *Server, f *Frame, c *Client) error {
	if !c.Identified() {
		// group membership only means something once we know who this is
		return nil
	}
	p, err := decode.MapToStruct[groupPayload](f.Data)
	if err != nil {
		return errors.Wrap(ErrBadFrame, err.Error())
	}
	if p.GroupID == "" {
		return errors.Wrap(ErrBadFrame, "join-group missing group_id")
	}
	s.reg.JoinRoom(c.ConnID, GroupRoom(p.GroupID))
	return nil
}

func handleLeaveGroup(s *Server, f *Frame, c *Client) error {
	if !c.Identified() {
		return nil
	}
	p, err := decode.MapToStruct[groupPayload](f.Data)
	if err != nil {
		return errors.Wrap(ErrBadFrame, err.Error())
	}
	if p.GroupID == "" {
		return errors.Wrap(ErrBadFrame, "leave-group missing group_id")
	}
	s.reg.LeaveRoom(c.ConnID, GroupRoom(p.GroupID))
	return nil
}

// handleTyping fans a typing signal out to same-instance peers only.
// Ephemeral and low-value-if-lost, so it bypasses the bus: cross-instance
// peers get the bus-routed copy from the typing channel instead.
func handleTyping(s *Server, f *Frame, c *Client) error {
	p, err := decode.MapToStruct[bus.TypingPayload](f.Data)
	if err != nil {
		return errors.Wrap(ErrBadFrame, err.Error())
	}
	if p.ToID == "" {
		return errors.Wrap(ErrBadFrame, "typing missing to_id")
	}
	if p.Type == bus.KindGroup {
		s.BroadcastToRoom(GroupRoom(p.ToID), EvGroupTyping, f.Data)
		return nil
	}
	s.BroadcastToRoom(PersonalRoom(p.ToID), EvClientTyping, f.Data)
	return nil
}

// handleSeen mirrors the bus-routed seen path for same-process latency.
// The receipt targets the ORIGINAL sender's room (from_id), never the
// acknowledger's.
func handleSeen(s *Server, f *Frame, c *Client) error {
	p, err := decode.MapToStruct[bus.SeenPayload](f.Data)
	if err != nil {
		return errors.Wrap(ErrBadFrame, err.Error())
	}
	if p.Type == bus.KindGroup {
		if p.ToID == "" {
			return errors.Wrap(ErrBadFrame, "seen missing to_id")
		}
		s.BroadcastToRoom(GroupRoom(p.ToID), EvGroupSeen, f.Data)
		return nil
	}
	if p.FromID == "" {
		return errors.Wrap(ErrBadFrame, "seen missing from_id")
	}
	s.BroadcastToRoom(PersonalRoom(p.FromID), EvClientSeen, f.Data)
	return nil
}

// handleSendMessage refreshes contact-list UI state on both sides of a
// conversation right after a message is sent.
func handleSendMessage(s *Server, f *Frame, c *Client) error {
	p, err := decode.MapToStruct[contactUpdatePayload](f.Data)
	if err != nil {
		return errors.Wrap(ErrBadFrame, err.Error())
	}
	if p.ReceiverID == "" {
		return errors.Wrap(ErrBadFrame, "sendMessage missing receiver_id")
	}

	var rooms []string
	if p.Type == bus.KindGroup {
		rooms = []string{GroupRoom(p.ReceiverID)}
	} else {
		if p.SenderID == "" {
			return errors.Wrap(ErrBadFrame, "sendMessage missing sender_id")
		}
		rooms = []string{PersonalRoom(p.SenderID), PersonalRoom(p.ReceiverID)}
	}
	s.BroadcastToRooms(rooms, EvClientContactItem, f.Data)
	s.BroadcastToRooms(rooms, EvUpdateConversation, f.Data)
	return nil
}
