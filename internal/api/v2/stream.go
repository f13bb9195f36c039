package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/signalwatch/trendalert-go/internal/alerting"
	"github.com/signalwatch/trendalert-go/internal/logger"
)

const streamWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API is same-origin behind the embedded server; cross-origin
	// dashboards connect through the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamHub fans alert lifecycle events out to connected websocket clients.
// A single subscription on the engine stream feeds all connections.
type streamHub struct {
	conns map[*websocket.Conn]struct{}
	mu    sync.Mutex
	log   logger.Logger
}

func newStreamHub(stream *alerting.AlertStream, log logger.Logger) *streamHub {
	h := &streamHub{
		conns: make(map[*websocket.Conn]struct{}),
		log:   log,
	}
	stream.Subscribe(h.broadcast)
	return h
}

func (h *streamHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *streamHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *streamHub) broadcast(event alerting.AlertEvent) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(event); err != nil {
			h.log.Debug("dropping slow stream client", logger.Error(err))
			h.remove(conn)
		}
	}
}

// initStreamRoutes registers the websocket alert stream.
func (c *Controller) initStreamRoutes() {
	if c.engine == nil {
		return
	}
	hub := newStreamHub(c.engine.Stream(), c.log)
	c.Group.GET("/alerts/stream", func(ctx echo.Context) error {
		conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
		if err != nil {
			return err
		}
		hub.add(conn)

		// Reader loop detects client disconnect; inbound messages are ignored.
		go func() {
			defer hub.remove(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		return nil
	})
}
