package relay

import (
	"github.com/pkg/errors"
)

// HandlerFunc processes one client frame. Handlers run synchronously in
// the connection's read loop and must complete without blocking on
// unbounded I/O.
type HandlerFunc func(s *Server, f *Frame, c *Client) error

// Dispatcher maps client event names to handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

var ErrNoHandler = errors.New("relay: no handler for event")

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

func (d *Dispatcher) Register(event string, h HandlerFunc) {
	d.handlers[event] = h
}

func (d *Dispatcher) Dispatch(s *Server, f *Frame, c *Client) error {
	h, ok := d.handlers[f.Event]
	if !ok {
		return errors.Wrapf(ErrNoHandler, "event=%s", f.Event)
	}
	return h(s, f, c)
}
