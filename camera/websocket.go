package camera

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

// LinkState is the telemetry link state machine:
// Idle -> Connecting -> Connected -> Backoff -> Connecting ... -> Stopped.
type LinkState int32

const (
	LinkIdle LinkState = iota
	LinkConnecting
	LinkConnected
	LinkBackoff
	LinkStopped
)

func (s LinkState) String() string {
	switch s {
	case LinkIdle:
		return "idle"
	case LinkConnecting:
		return "connecting"
	case LinkConnected:
		return "connected"
	case LinkBackoff:
		return "backoff"
	case LinkStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	// DefaultReadTimeout bounds the silence allowed on a telemetry session; frames arrive at about 1 Hz.
	DefaultReadTimeout = 5 * time.Second
	pingWriteWait      = time.Second
)

// TelemetryHandler receives every decoded telemetry frame. It runs on the reader goroutine.
type TelemetryHandler func(types.TelemetryMessage)

// IsConnected reports whether a telemetry session is live.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

func (c *Client) LinkState() LinkState {
	return LinkState(c.state.Load())
}

func (c *Client) setState(s LinkState) {
	c.state.Store(int32(s))
}

// ConnectWebSocket starts the telemetry reconnection loop in the background.
// Calling it while a loop is already running does nothing. Calling it while a
// stopped loop is still unwinding starts a fresh loop once the old one exits.
func (c *Client) ConnectWebSocket(onTelemetry TelemetryHandler) {
	c.mu.Lock()
	if c.running {
		if stopped(c.stop) {
			c.restart = true
			c.restartHandler = onTelemetry
		}
		c.mu.Unlock()
		return
	}
	stop := c.startLocked()
	c.mu.Unlock()

	c.setState(LinkConnecting)
	go c.reconnectLoop(stop, onTelemetry)
}

func (c *Client) startLocked() chan struct{} {
	c.running = true
	stop := make(chan struct{})
	c.stop = stop
	c.stopOnce = &sync.Once{}
	return stop
}

// DisconnectWebSocket stops the reconnection loop and closes any live session. Safe to call repeatedly.
func (c *Client) DisconnectWebSocket() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected.Store(false)
	c.restart = false
	c.restartHandler = nil
	if c.stop != nil {
		stop := c.stop
		c.stopOnce.Do(func() {
			close(stop)
			tool.DefaultLogger.Infof("[%s] Sent stop signal to telemetry reconnection loop", c.baseURL)
		})
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func stopped(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

func (c *Client) reconnectLoop(stop chan struct{}, onTelemetry TelemetryHandler) {
	defer func() {
		c.connected.Store(false)
		c.mu.Lock()
		if c.stop != stop {
			c.mu.Unlock()
			return
		}
		if c.restart {
			handler := c.restartHandler
			c.restart = false
			c.restartHandler = nil
			next := c.startLocked()
			c.mu.Unlock()
			tool.DefaultLogger.Infof("[%s] Restarting telemetry reconnection loop", c.baseURL)
			c.setState(LinkConnecting)
			go c.reconnectLoop(next, handler)
			return
		}
		c.running = false
		c.setState(LinkStopped)
		c.mu.Unlock()
	}()

	wsURL, err := tool.BuildWebSocketURL(c.baseURL)
	if err != nil {
		tool.DefaultLogger.Errorf("[%s] Cannot build telemetry URL: %v", c.baseURL, err)
		return
	}

	attempts := 0
	for {
		if stopped(stop) {
			tool.DefaultLogger.Infof("[%s] Stop signal received, ending telemetry reconnection", c.baseURL)
			return
		}

		c.setState(LinkConnecting)
		if c.policy.MaxAttempts > 0 {
			tool.DefaultLogger.Infof("Connecting to WebSocket: %s (attempt %d/%d)", wsURL, attempts+1, c.policy.MaxAttempts)
		} else {
			tool.DefaultLogger.Infof("Connecting to WebSocket: %s (attempt %d)", wsURL, attempts+1)
		}

		conn, err := c.dial(wsURL, stop)
		if err != nil {
			attempts++
			tool.DefaultLogger.Errorf("[%s] WebSocket connection error: %v", c.baseURL, err)
		} else {
			attempts = 0
			if clean := c.runSession(conn, stop, onTelemetry); clean {
				tool.DefaultLogger.Infof("[%s] WebSocket connection ended normally", c.baseURL)
			} else {
				attempts++
			}
		}

		if stopped(stop) {
			tool.DefaultLogger.Infof("[%s] Stop signal received, ending telemetry reconnection", c.baseURL)
			return
		}
		if c.policy.exhausted(attempts) {
			tool.DefaultLogger.Errorf("[%s] Max reconnection attempts reached, giving up", c.baseURL)
			return
		}

		delay := c.policy.delay(attempts)
		if attempts > 0 {
			tool.DefaultLogger.Infof("[%s] Reconnecting in %v (attempt %d)", c.baseURL, delay, attempts+1)
		}
		if c.onBackoff != nil {
			c.onBackoff(attempts, delay)
		}
		c.setState(LinkBackoff)
		timer := time.NewTimer(delay)
		select {
		case <-stop:
			timer.Stop()
			tool.DefaultLogger.Infof("[%s] Stop signal received during backoff, ending telemetry reconnection", c.baseURL)
			return
		case <-timer.C:
		}
	}
}

// dial performs the handshake; closing stop aborts it.
func (c *Client) dial(wsURL string, stop <-chan struct{}) (*websocket.Conn, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	header := http.Header{}
	tool.SetBearer(header, c.token)
	conn, resp, err := c.dialer.DialContext(ctx, wsURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// runSession reads frames until the session ends. It reports whether the server closed cleanly.
func (c *Client) runSession(conn *websocket.Conn, stop <-chan struct{}, onTelemetry TelemetryHandler) bool {
	c.mu.Lock()
	if stopped(stop) {
		c.mu.Unlock()
		_ = conn.Close()
		return true
	}
	c.conn = conn
	c.connected.Store(true)
	c.mu.Unlock()

	c.setState(LinkConnected)
	tool.DefaultLogger.Infof("[%s] WebSocket connected", c.baseURL)

	keepAliveDone := make(chan struct{})
	defer func() {
		close(keepAliveDone)
		c.connected.Store(false)
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	})
	go c.keepAlive(conn, keepAliveDone)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return true
			}
			if stopped(stop) {
				return true
			}
			tool.DefaultLogger.Warnf("[%s] WebSocket read error: %v", c.baseURL, err)
			return false
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		if msgType != websocket.TextMessage {
			continue
		}
		var frame types.TelemetryMessage
		if err := sonic.Unmarshal(data, &frame); err != nil {
			tool.DefaultLogger.Warnf("[%s] Failed to parse telemetry frame: %v", c.baseURL, err)
			continue
		}
		if onTelemetry != nil {
			onTelemetry(frame)
		}
	}
}

// keepAlive pings the camera at half the read timeout until done is closed.
func (c *Client) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.readTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingWriteWait)); err != nil {
				tool.DefaultLogger.Debugf("[%s] WebSocket ping failed: %v", c.baseURL, err)
				return
			}
		}
	}
}
