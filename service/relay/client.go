package relay

import (
	"sync"
	"time"

	"PRelay/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client is one live socket connection. A single user may have several
// devices/tabs, each a separate Client with its own send queue consumed
// by a single writer goroutine (gorilla connections must not be written
// concurrently).
type Client struct {
	ConnID string
	WS     *websocket.Conn
	Send   chan []byte

	// identity fields are written only from the connection's own read
	// loop (handlers run synchronously in it) and read after the loop
	// exits, so they need no lock
	UserID string
	Name   string

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(connID string, ws *websocket.Conn, sendQueueSize int) *Client {
	return &Client{
		ConnID: connID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// Identified reports whether the client announced who it is.
func (c *Client) Identified() bool { return c.UserID != "" }

// Close signals the write pump to finish. The send queue itself is
// never closed: a fan-out job may still hold this client after the
// disconnect, and its late delivery must be dropped, not fault.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// WritePump drains the send queue onto the socket and keeps the
// connection alive with pings. It owns all writes; it exits when the
// client is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.WS.Close()
	}()

	for {
		select {
		case msg := <-c.Send:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debugf("[ws] write failed conn=%s err=%v", c.ConnID, err)
				return
			}
		case <-c.done:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.WS.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
