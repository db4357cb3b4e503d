package notifyhub

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/moyoez/camfleet/tool"
)

const (
	pongWait          = 60 * time.Second
	pingPeriod        = pongWait * 9 / 10
	maxInboundMessage = 4 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // OnlyAllowLocal guards the route
	},
}

// HandleNotifyWS upgrades the request and keeps the subscriber registered until it goes away.
// Subscribers only listen; inbound frames are drained so close and pong frames are observed.
func HandleNotifyWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			tool.DefaultLogger.Debugf("Notify WS upgrade failed: %v", err)
			return
		}
		id := hub.Register(conn)
		defer func() {
			hub.Unregister(conn)
			_ = conn.Close()
		}()

		conn.SetReadLimit(maxInboundMessage)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		done := make(chan struct{})
		defer close(done)
		go keepAlive(conn, done)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				tool.DefaultLogger.Debugf("Notify subscriber %s disconnected: %v", id, err)
				return
			}
		}
	}
}

// keepAlive pings the subscriber until done closes or a ping cannot be written.
// WriteControl may run concurrently with the hub's data writes.
func keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
