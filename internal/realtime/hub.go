package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub is an in-memory fan-out bus plus a set of live WebSocket
// connections, used both as a standalone Publisher (when Pub/Sub is not
// enabled) and as the immediate-push side alongside PubSubPublisher.
type Hub struct {
	mu      sync.Mutex
	conns   map[*websocket.Conn]string // conn -> pool_id filter ("" = all)
	lastErr error
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]string)}
}

// PublishCommitted implements Publisher by broadcasting to every
// registered WebSocket connection whose pool filter matches.
func (h *Hub) PublishCommitted(_ context.Context, e CommittedEvent) error {
	evt := toCloudEvent(uuid.NewString(), e)

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, poolFilter := range h.conns {
		if poolFilter != "" && poolFilter != e.PoolID {
			continue
		}
		if err := conn.WriteJSON(evt); err != nil {
			h.lastErr = err
			delete(h.conns, conn)
			conn.Close()
		}
	}
	return nil
}

// Register adds a WebSocket connection to the fan-out set, optionally
// filtered to one pool. Returns an unregister function.
func (h *Hub) Register(conn *websocket.Conn, poolFilter string) func() {
	h.mu.Lock()
	h.conns[conn] = poolFilter
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		conn.Close()
	}
}

func (h *Hub) ConnCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
