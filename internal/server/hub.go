package server

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"aurix/internal/observability"
)

// Event is one entry on the dashboard event stream.
type Event struct {
	Type     string      `json:"type"`
	TenantID string      `json:"tenant_id,omitempty"`
	At       time.Time   `json:"at"`
	Payload  interface{} `json:"payload,omitempty"`
}

// Event type constants
const (
	EventSync     = "sync"
	EventPipeline = "pipeline"
	EventAlert    = "alert"
)

const (
	// clientBuffer is the per-client event backlog before the client is
	// considered too slow and dropped.
	clientBuffer = 16

	wsWriteTimeout = 10 * time.Second
)

// Hub fans analytics events out to connected websocket clients.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan Event
}

// NewHub creates an event hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Dashboard origins are not pinned; the stream is read-only.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: map[*websocket.Conn]chan Event{},
	}
}

// Broadcast queues the event for every connected client. Clients whose
// backlog is full are dropped instead of blocking the caller.
func (h *Hub) Broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, ch := range h.clients {
		select {
		case ch <- event:
		default:
			h.logger.Printf("[ws] dropping slow client %s", conn.RemoteAddr())
			h.dropLocked(conn)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		h.dropLocked(conn)
	}
}

// ServeWS upgrades the request and streams events until the client
// disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[ws] upgrade: %v", err)
		return
	}

	ch := h.add(conn)
	go h.writeLoop(conn, ch)
	go h.readLoop(conn)
}

func (h *Hub) add(conn *websocket.Conn) chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, clientBuffer)
	h.clients[conn] = ch
	observability.DefaultMetrics.ConnectedWSClients.Set(float64(len(h.clients)))
	h.logger.Printf("[ws] client connected: %s", conn.RemoteAddr())
	return ch
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(conn)
}

// dropLocked closes the client and its channel. Callers hold h.mu.
func (h *Hub) dropLocked(conn *websocket.Conn) {
	ch, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(h.clients, conn)
	close(ch)
	conn.Close()
	observability.DefaultMetrics.ConnectedWSClients.Set(float64(len(h.clients)))
}

// writeLoop serializes queued events to the connection. A closed channel
// means the client was dropped by the hub.
func (h *Hub) writeLoop(conn *websocket.Conn, ch chan Event) {
	for event := range ch {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(event); err != nil {
			h.remove(conn)
			return
		}
	}
}

// readLoop discards inbound frames; the stream is one way. A read error
// is how client disconnects surface.
func (h *Hub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(conn)
			return
		}
	}
}
