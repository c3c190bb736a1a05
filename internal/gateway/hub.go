// Package gateway is the HTTP and WebSocket surface the chart front-end
// talks to: REST for one-shot analysis requests, a WebSocket hub for
// pushed refreshes of watched markets.
package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"marketlens/internal/metrics"
)

// Client is one connected WebSocket consumer. Writes go through a buffered
// send channel so a slow client never blocks the broadcaster; a client
// whose buffer fills is disconnected.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans completed analysis snapshots out to connected chart clients.
type Hub struct {
	log     *slog.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		log:     log,
		metrics: m,
		clients: make(map[*Client]bool),
	}
}

// HandleConn owns a freshly upgraded connection: registers it, starts the
// write pump, and blocks reading until the peer goes away.
func (h *Hub) HandleConn(conn *websocket.Conn) {
	client := &Client{conn: conn, send: make(chan []byte, 16)}

	h.mu.Lock()
	h.clients[client] = true
	n := len(h.clients)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(n))
	}
	h.log.Info("ws client connected", "clients", n)

	go client.writePump()

	// Clients only listen; the read loop exists to notice the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(client)
}

func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	close(client.send)
	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(n))
	}
	h.log.Info("ws client disconnected", "clients", n)
}

// Broadcast serializes v once and queues it to every connected client.
// Clients that cannot keep up are dropped.
func (h *Hub) Broadcast(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.log.Error("broadcast marshal failed", "err", err)
		return
	}

	h.mu.RLock()
	var slow []*Client
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.log.Warn("dropping slow ws client")
		h.drop(client)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
