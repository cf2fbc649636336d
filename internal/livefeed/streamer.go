// Package livefeed provides real-time telemetry streaming via
// WebSocket so a dashboard or the external ML scheduler can watch
// tick-by-tick action events without tailing the CSV file.
package livefeed

import (
	"context"
	"net/http"
	"sync"

	"github.com/arobi/forgesim/internal/telemetry"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Hub broadcasts telemetry rows to connected WebSocket clients. Each
// client has a bounded outbound buffer; a slow client that falls
// behind has rows dropped for it rather than stalling the
// broadcaster, matching the spec's bounded-backpressure guidance for
// decoupled telemetry consumers.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool

	broadcast chan telemetry.Row
	upgrader  websocket.Upgrader
	logger    *logrus.Logger
}

type client struct {
	conn *websocket.Conn
	send chan telemetry.Row
	id   string
}

// NewHub creates a Hub. The broadcast channel is itself bounded and
// drop-oldest, so a burst of ticks never blocks module workers that
// call Broadcast.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		broadcast: make(chan telemetry.Row, 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// HandleWebSocket upgrades an HTTP request and registers the new
// client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.WithError(err).Error("livefeed: websocket upgrade failed")
		}
		return
	}

	c := &client{conn: conn, send: make(chan telemetry.Row, 64), id: r.RemoteAddr}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	go c.writePump(ctx)
	go h.readPump(ctx, cancel, c)
}

func (h *Hub) readPump(ctx context.Context, cancel context.CancelFunc, c *client) {
	defer cancel()
	defer h.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump(ctx context.Context) {
	defer c.conn.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case row, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(row); err != nil {
				return
			}
		}
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast enqueues a telemetry row for delivery to every connected
// client. Non-blocking: if the shared broadcast buffer is full, the
// oldest queued row is dropped to make room for this one.
func (h *Hub) Broadcast(row telemetry.Row) {
	select {
	case h.broadcast <- row:
	default:
		select {
		case <-h.broadcast:
		default:
		}
		select {
		case h.broadcast <- row:
		default:
		}
	}
}

// Run drains the broadcast channel and fans each row out to clients
// until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case row := <-h.broadcast:
			h.fanOut(row)
		}
	}
}

func (h *Hub) fanOut(row telemetry.Row) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- row:
		default:
			// client buffer full, drop this row for that client
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
		close(c.send)
		delete(h.clients, c)
	}
}
