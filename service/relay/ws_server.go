package relay

import (
	"net"
	"time"

	"PRelay/logger"
	"PRelay/tools/ids"
	"PRelay/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// HandleWS upgrades the request and runs the connection's read loop.
// Handlers dispatch synchronously inside the loop; the write side is a
// single pump goroutine per client.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	connID := ids.GenerateString()
	client := NewClient(connID, ws, s.cfg.SendQueueSize)
	s.addClient(client)
	safe.Go(client.WritePump)

	logger.Infof("[ws] connected conn=%s remote=%s", connID, ws.RemoteAddr())

	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s", connID)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s err=%v", connID, rerr)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", connID, rerr)
			}
			break
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		f, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Warnf("[ws] bad frame conn=%s err=%v sample=%q", connID, perr, sample)
			continue
		}

		if derr := s.disp.Dispatch(s, f, client); derr != nil {
			// malformed payload or unknown event: drop, keep the
			// connection open
			logger.Warnf("[ws] drop event=%s conn=%s err=%v", f.Event, connID, derr)
			continue
		}
	}

	s.HandleDisconnect(client)
}
