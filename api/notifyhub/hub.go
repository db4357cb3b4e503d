package notifyhub

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

const writeWait = 5 * time.Second

// subscriber serializes writes to one connection; gorilla allows a single concurrent writer.
type subscriber struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub holds WebSocket connections and broadcasts notifications to all clients.
// Implements notify.NotifyHub.
type Hub struct {
	mu    sync.RWMutex
	conns map[*websocket.Conn]*subscriber
}

// New creates a new notify hub.
func New() *Hub {
	return &Hub{
		conns: make(map[*websocket.Conn]*subscriber),
	}
}

// Register adds a WebSocket connection to the hub and returns its subscriber id.
func (h *Hub) Register(conn *websocket.Conn) string {
	sub := &subscriber{id: tool.GenerateRandomUUID(), conn: conn}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = sub
	tool.DefaultLogger.Debugf("Notify subscriber %s connected (%d total)", sub.id, len(h.conns))
	return sub.id
}

// Unregister removes a WebSocket connection from the hub.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast sends the notification as JSON to all registered connections.
// A subscriber whose write fails is dropped.
func (h *Hub) Broadcast(notification *types.Notification) {
	if notification == nil {
		return
	}
	payload, err := sonic.Marshal(notification)
	if err != nil {
		tool.DefaultLogger.Errorf("Failed to marshal notification: %v", err)
		return
	}

	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.conns))
	for _, s := range h.conns {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		s.mu.Lock()
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := s.conn.WriteMessage(websocket.TextMessage, payload)
		s.mu.Unlock()
		if err != nil {
			tool.DefaultLogger.Debugf("Dropping notify subscriber %s: %v", s.id, err)
			h.Unregister(s.conn)
			_ = s.conn.Close()
		}
	}
}
