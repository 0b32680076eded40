// Change-feed streaming over websocket.
//
// GET /stream upgrades to a websocket and pushes one JSON frame per
// reconciled store change. The hub implements feed.Notifier, so it is fed
// by the reconciler after the cache has been invalidated: a client that
// refetches on receipt always observes post-invalidation state. Delivery
// is best-effort; a slow client loses frames rather than stalling the
// reconciler.
package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lensworks/go-optics-backend/internal/feed"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPingPeriod = 30 * time.Second
	streamBuffer     = 32
)

// StreamHub fans reconciled change events out to websocket clients.
type StreamHub struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}

	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

type streamClient struct {
	conn *websocket.Conn
	send chan feed.Event
}

// NewStreamHub constructs a StreamHub.
func NewStreamHub(logger zerolog.Logger) *StreamHub {
	return &StreamHub{
		clients: make(map[*streamClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients live on the SPA origin; CORS middleware governs
			// the rest of the API and the stream carries no credentials.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Notify implements feed.Notifier: broadcast ev to every connected client,
// dropping it for clients whose buffer is full.
func (h *StreamHub) Notify(ev feed.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			h.logger.Warn().Str("table", ev.Table).Msg("stream client buffer full, event dropped")
		}
	}
}

// ClientCount returns the number of connected stream clients.
func (h *StreamHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *StreamHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *StreamHub) add(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *StreamHub) remove(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Stream upgrades the request and streams change events until the client
// disconnects.
func (h *Handlers) Stream(c *gin.Context) {
	if h.stream == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "change feed disabled")
		return
	}
	h.stream.serve(c.Writer, c.Request)
}

func (h *StreamHub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &streamClient{conn: conn, send: make(chan feed.Event, streamBuffer)}
	h.add(client)

	go h.writePump(client)
	h.readPump(client)
}

// readPump consumes (and discards) client frames until the connection
// drops, then detaches the client.
func (h *StreamHub) readPump(c *streamClient) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump pushes events and keepalive pings to the client.
func (h *StreamHub) writePump(c *streamClient) {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
