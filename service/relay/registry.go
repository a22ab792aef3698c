package relay

import (
	"sync"
)

// Room identifiers. A personal room exists per user and is auto-joined
// by every session that user opens; group rooms are joined explicitly.
func PersonalRoom(userID string) string { return "user:" + userID }
func GroupRoom(groupID string) string   { return "group:" + groupID }

// session is one live socket connection with its joined room set.
type session struct {
	connID string
	userID string
	name   string
	rooms  map[string]struct{}
}

// Registry tracks connected sessions and the session↔room mapping in
// both directions. Every mutation updates both sides under a single
// lock acquisition, so no reader observes a half-updated mapping.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*session            // conn_id -> session
	byUser map[string]map[string]*session // user_id -> conn_id -> session
	rooms  map[string]map[string]struct{} // room_id -> conn_id set
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]*session),
		byUser: make(map[string]map[string]*session),
		rooms:  make(map[string]map[string]struct{}),
	}
}

// Register creates the session for connID and auto-joins the personal
// room for userID. Idempotent per connection: registering again only
// updates the identity fields.
func (r *Registry) Register(connID, userID, name string) {
	if connID == "" || userID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.byConn[connID]
	if s == nil {
		s = &session{connID: connID, rooms: make(map[string]struct{})}
		r.byConn[connID] = s
	} else if s.userID != "" && s.userID != userID {
		// re-announced under a different identity: move the user index
		// and the old personal room membership
		r.leaveLocked(s, PersonalRoom(s.userID))
		if m := r.byUser[s.userID]; m != nil {
			delete(m, connID)
			if len(m) == 0 {
				delete(r.byUser, s.userID)
			}
		}
	}
	s.userID = userID
	s.name = name

	m := r.byUser[userID]
	if m == nil {
		m = make(map[string]*session)
		r.byUser[userID] = m
	}
	m[connID] = s

	r.joinLocked(s, PersonalRoom(userID))
}

// JoinRoom adds the connection to roomID. No-op when the connection is
// unknown or already a member.
func (r *Registry) JoinRoom(connID, roomID string) bool {
	if connID == "" || roomID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.byConn[connID]
	if s == nil {
		return false
	}
	return r.joinLocked(s, roomID)
}

// LeaveRoom removes the connection from roomID. No-op when not a member.
func (r *Registry) LeaveRoom(connID, roomID string) bool {
	if connID == "" || roomID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.byConn[connID]
	if s == nil {
		return false
	}
	return r.leaveLocked(s, roomID)
}

// Deregister removes the session from every room it joined and deletes
// it, returning the identity it held for the disconnect broadcast.
// Deregistering an unknown connection is a safe no-op (ok=false).
func (r *Registry) Deregister(connID string) (userID, name string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.byConn[connID]
	if s == nil {
		return "", "", false
	}
	for roomID := range s.rooms {
		r.leaveLocked(s, roomID)
	}
	if s.userID != "" {
		if m := r.byUser[s.userID]; m != nil {
			delete(m, connID)
			if len(m) == 0 {
				delete(r.byUser, s.userID)
			}
		}
	}
	delete(r.byConn, connID)
	return s.userID, s.name, true
}

// MembersOf returns a snapshot of the connection IDs in roomID.
// Iterating the result is unaffected by concurrent joins/leaves.
func (r *Registry) MembersOf(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.rooms[roomID]
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for connID := range m {
		out = append(out, connID)
	}
	return out
}

// RoomsOf returns a snapshot of the rooms the connection has joined.
func (r *Registry) RoomsOf(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.byConn[connID]
	if s == nil || len(s.rooms) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.rooms))
	for roomID := range s.rooms {
		out = append(out, roomID)
	}
	return out
}

// SessionsOf returns the connection IDs registered under userID.
func (r *Registry) SessionsOf(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byUser[userID]
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for connID := range m {
		out = append(out, connID)
	}
	return out
}

// Identity returns the announced identity of a connection, if any.
func (r *Registry) Identity(connID string) (userID, name string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.byConn[connID]
	if s == nil {
		return "", "", false
	}
	return s.userID, s.name, true
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// joinLocked/leaveLocked keep both mapping directions in sync; callers
// hold the write lock.
func (r *Registry) joinLocked(s *session, roomID string) bool {
	if _, in := s.rooms[roomID]; in {
		return false
	}
	s.rooms[roomID] = struct{}{}
	m := r.rooms[roomID]
	if m == nil {
		m = make(map[string]struct{})
		r.rooms[roomID] = m
	}
	m[s.connID] = struct{}{}
	return true
}

func (r *Registry) leaveLocked(s *session, roomID string) bool {
	if _, in := s.rooms[roomID]; !in {
		return false
	}
	delete(s.rooms, roomID)
	if m := r.rooms[roomID]; m != nil {
		delete(m, s.connID)
		if len(m) == 0 {
			delete(r.rooms, roomID)
		}
	}
	return true
}
