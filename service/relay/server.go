package relay

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"PRelay/global"
	"PRelay/logger"
	"PRelay/service/bus"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Server owns the per-process relay state: the membership registry, the
// set of live clients, and the fan-out pool. Bus messages and client
// frames both end up here as room/broadcast deliveries.
type Server struct {
	gwID string
	cfg  *global.AppConfig

	reg  *Registry
	fan  *Fanout
	disp *Dispatcher

	mu      sync.RWMutex
	clients map[string]*Client // conn_id -> client

	upgrader websocket.Upgrader
	busReady atomic.Bool
}

func NewServer(cfg *global.AppConfig) *Server {
	s := &Server{
		gwID:    cfg.GatewayID,
		cfg:     cfg,
		reg:     NewRegistry(),
		fan:     NewFanout(cfg.FanoutWorkers, cfg.FanoutQueue),
		disp:    NewDispatcher(),
		clients: make(map[string]*Client),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || cfg.OriginAllowed(origin)
		},
	}
	s.registerHandlers()
	return s
}

func (s *Server) Registry() *Registry { return s.reg }

// SetBusReady flips the health state once the bus subscription is live.
func (s *Server) SetBusReady(ready bool) { s.busReady.Store(ready) }

func (s *Server) addClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ConnID] = c
}

func (s *Server) removeClient(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[connID]; ok {
		delete(s.clients, connID)
		c.Close()
	}
}

func (s *Server) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) allClients() []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	return out
}

func (s *Server) clientsByID(connIDs []string) []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Client, 0, len(connIDs))
	for _, id := range connIDs {
		if c, ok := s.clients[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// roomClients resolves the union of members across rooms, deduplicated
// so a connection in several target rooms gets one copy.
func (s *Server) roomClients(rooms []string) []*Client {
	seen := make(map[string]struct{})
	var ids []string
	for _, room := range rooms {
		for _, connID := range s.reg.MembersOf(room) {
			if _, dup := seen[connID]; dup {
				continue
			}
			seen[connID] = struct{}{}
			ids = append(ids, connID)
		}
	}
	return s.clientsByID(ids)
}

// BroadcastToRoom pushes one event to every member of roomID.
func (s *Server) BroadcastToRoom(roomID, event string, payload any) {
	s.BroadcastToRooms([]string{roomID}, event, payload)
}

func (s *Server) BroadcastToRooms(rooms []string, event string, payload any) {
	s.fan.Broadcast(s.roomClients(rooms), EncodeEvent(event, payload))
}

// BroadcastToAll pushes one event to every connection on this instance.
func (s *Server) BroadcastToAll(event string, payload any) {
	s.fan.Broadcast(s.allClients(), EncodeEvent(event, payload))
}

// BroadcastToAllExcept skips the originating connection.
func (s *Server) BroadcastToAllExcept(connID, event string, payload any) {
	all := s.allClients()
	out := all[:0]
	for _, c := range all {
		if c.ConnID != connID {
			out = append(out, c)
		}
	}
	s.fan.Broadcast(out, EncodeEvent(event, payload))
}

// HandleBusMessage routes one decoded bus message and applies the
// resulting deliveries. Called synchronously from the subscriber.
func (s *Server) HandleBusMessage(msg *bus.Message) {
	for _, d := range Route(msg, s.reg) {
		if d.All {
			s.BroadcastToAll(d.Event, d.Payload)
			continue
		}
		s.BroadcastToRooms(d.Rooms, d.Event, d.Payload)
	}
}

// HandleDisconnect runs the deregistration side effect for a closed
// connection. Safe for connections that never announced an identity.
func (s *Server) HandleDisconnect(c *Client) {
	userID, name, ok := s.reg.Deregister(c.ConnID)
	s.removeClient(c.ConnID)
	if ok && userID != "" {
		logger.Infof("[relay] user disconnect user=%s conn=%s", userID, c.ConnID)
		s.BroadcastToAllExcept(c.ConnID, EvUserDisconnect, map[string]any{
			"user_id":   userID,
			"user_name": name,
		})
	}
}

// HealthHandler reports liveness: session count and the subscribed
// channel list.
func (s *Server) HealthHandler(c *gin.Context) {
	status := "ok"
	if !s.busReady.Load() {
		status = "starting"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          status,
		"connected_users": s.clientCount(),
		"channels":        bus.AllChannels(),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}
