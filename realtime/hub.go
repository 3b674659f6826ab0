package realtime

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"crmhub/metrics"
)

// Connection is one websocket attached to the relay. The relay keeps no
// identity mapping beyond the set itself; user attribution travels in-band
// inside event payloads.
type Connection struct {
	ID     string
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
}

// Hub is the broadcast relay: a dumb fan-out pipe over the set of active
// connections. Client events are echoed to everyone except the sender;
// server-originated events go to everyone.
type Hub struct {
	connections map[string]*Connection
	register    chan *Connection
	unregister  chan *Connection
	mu          sync.RWMutex
	done        chan struct{}
	closeOnce   sync.Once
}

// NewHub creates a Hub ready for Run.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		done:        make(chan struct{}),
	}
}

// RegisterConnection schedules a connection to be added to the broadcast set.
func (h *Hub) RegisterConnection(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
	}
}

// UnregisterConnection schedules a connection to be removed. No departure
// event is synthesized for the remaining connections.
func (h *Hub) UnregisterConnection(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Run is the hub's event loop. It owns connection set membership; broadcast
// reads take the lock directly.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			// Close every remaining send channel so writer goroutines
			// draining them terminate instead of blocking forever.
			h.mu.Lock()
			for id, conn := range h.connections {
				close(conn.Send)
				delete(h.connections, id)
			}
			h.mu.Unlock()
			metrics.UpdateWebSocketConnections(0)
			return
		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			count := len(h.connections)
			h.mu.Unlock()
			metrics.UpdateWebSocketConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, exists := h.connections[conn.ID]; exists {
				delete(h.connections, conn.ID)
				close(conn.Send)
			}
			count := len(h.connections)
			h.mu.Unlock()
			metrics.UpdateWebSocketConnections(count)
		}
	}
}

// BroadcastExcept forwards a raw frame to every connection except the named
// sender. Slow consumers are dropped rather than blocking the fan-out.
func (h *Hub) BroadcastExcept(senderID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conn := range h.connections {
		if id == senderID {
			continue
		}
		select {
		case conn.Send <- data:
		default:
			close(conn.Send)
			delete(h.connections, id)
		}
	}
}

// Publish sends a server-originated event to every connection with no
// exception. Marshal failures are impossible for the typed payloads, but a
// nil check keeps the emitter fire-and-forget.
func (h *Hub) Publish(event Event) {
	data, err := event.Encode()
	if err != nil {
		return
	}
	metrics.IncrementEventPublished(string(event.Topic))
	h.BroadcastExcept("", data)
}

// ConnectionCount returns the size of the broadcast set.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Close shuts the hub down. The Run loop evicts and closes every remaining
// connection on its way out.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}
