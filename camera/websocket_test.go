package camera

import (
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/moyoez/camfleet/types"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func fastPolicy(maxAttempts int) ReconnectPolicy {
	return ReconnectPolicy{
		BaseDelay:   5 * time.Millisecond,
		MaxDelay:    20 * time.Millisecond,
		MaxAttempts: maxAttempts,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

// telemetryServer upgrades /ws, sends frames and then holds the session until the test ends.
func telemetryServer(t *testing.T, frames []string, connections *atomic.Int32, gotAuth *atomic.Value) (*httptest.Server, chan struct{}) {
	t.Helper()
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		if gotAuth != nil {
			gotAuth.Store(r.Header.Get("Authorization"))
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if connections != nil {
			connections.Add(1)
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		<-done
	}))
	return srv, done
}

func TestTelemetryFramesDelivered(t *testing.T) {
	var auth atomic.Value
	srv, done := telemetryServer(t, []string{
		`not json`,
		`{"fps":29.97,"bitrate":9800000,"queue_ms":12,"battery":0.5,"temp_c":40.1,"wifi_rssi":-60,"cpu_usage":0.4,"ndi_state":"streaming","dropped_frames":3,"charging_state":"charging"}`,
	}, nil, &auth)
	defer srv.Close()
	defer close(done)

	c := newTestClient(t, srv, "tok", WithReconnectPolicy(fastPolicy(3)))

	var mu sync.Mutex
	var got []types.TelemetryMessage
	c.ConnectWebSocket(func(m types.TelemetryMessage) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	})
	defer c.DisconnectWebSocket()

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, "telemetry frame")

	mu.Lock()
	frame := got[0]
	mu.Unlock()
	if frame.Fps != 29.97 || frame.DroppedFrames != 3 || frame.ChargingState != types.ChargingStateCharging {
		t.Errorf("Unexpected frame: %+v", frame)
	}
	if !c.IsConnected() || c.LinkState() != LinkConnected {
		t.Errorf("Expected live session, connected=%v state=%v", c.IsConnected(), c.LinkState())
	}
	if v, _ := auth.Load().(string); v != "Bearer tok" {
		t.Errorf("Expected bearer on handshake, got %q", v)
	}
}

func TestDisconnectStopsLoop(t *testing.T) {
	srv, done := telemetryServer(t, nil, nil, nil)
	defer srv.Close()
	defer close(done)

	c := newTestClient(t, srv, "", WithReconnectPolicy(fastPolicy(0)))
	c.ConnectWebSocket(nil)
	waitFor(t, 2*time.Second, c.IsConnected, "connection")

	c.DisconnectWebSocket()
	if c.IsConnected() {
		t.Errorf("IsConnected must be false right after DisconnectWebSocket")
	}
	waitFor(t, 2*time.Second, func() bool { return c.LinkState() == LinkStopped }, "stopped state")

	// idempotent
	c.DisconnectWebSocket()
}

func TestReconnectsAfterDrop(t *testing.T) {
	var connections atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connections.Add(1)
		// abrupt drop without a close frame
		_ = conn.UnderlyingConn().Close()
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "", WithReconnectPolicy(fastPolicy(0)))
	c.ConnectWebSocket(nil)
	defer c.DisconnectWebSocket()

	waitFor(t, 3*time.Second, func() bool { return connections.Load() >= 3 }, "reconnections")
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	c := NewClient("127.0.0.1", closedPort(t), "", WithTimeout(200*time.Millisecond), WithReconnectPolicy(fastPolicy(3)))
	c.ConnectWebSocket(nil)

	waitFor(t, 3*time.Second, func() bool { return c.LinkState() == LinkStopped }, "loop to give up")
	if c.IsConnected() {
		t.Errorf("IsConnected must be false after giving up")
	}
}

func TestDisconnectInterruptsBackoff(t *testing.T) {
	policy := ReconnectPolicy{BaseDelay: 10 * time.Second, MaxDelay: 30 * time.Second, MaxAttempts: 0}
	c := NewClient("127.0.0.1", closedPort(t), "", WithTimeout(200*time.Millisecond), WithReconnectPolicy(policy))
	c.ConnectWebSocket(nil)

	waitFor(t, 2*time.Second, func() bool { return c.LinkState() == LinkBackoff }, "backoff")
	start := time.Now()
	c.DisconnectWebSocket()
	waitFor(t, time.Second, func() bool { return c.LinkState() == LinkStopped }, "stop during backoff")
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("backoff sleep was not interrupted, took %v", elapsed)
	}
}

func TestConnectWebSocketIsSingleFlight(t *testing.T) {
	var connections atomic.Int32
	srv, done := telemetryServer(t, nil, &connections, nil)
	defer srv.Close()
	defer close(done)

	c := newTestClient(t, srv, "", WithReconnectPolicy(fastPolicy(0)))
	c.ConnectWebSocket(nil)
	c.ConnectWebSocket(nil)
	defer c.DisconnectWebSocket()

	waitFor(t, 2*time.Second, c.IsConnected, "connection")
	time.Sleep(50 * time.Millisecond)
	if n := connections.Load(); n != 1 {
		t.Errorf("Expected exactly one session, got %d", n)
	}
}

func TestSilentSessionTimesOutAndReconnects(t *testing.T) {
	var connections atomic.Int32
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		connections.Add(1)
		// never reads, so pings go unanswered
		<-done
	}))
	defer srv.Close()
	defer close(done)

	c := newTestClient(t, srv, "", WithReconnectPolicy(fastPolicy(0)), WithReadTimeout(100*time.Millisecond))
	c.ConnectWebSocket(nil)
	defer c.DisconnectWebSocket()

	waitFor(t, 3*time.Second, func() bool { return connections.Load() >= 2 }, "reconnect after silent session")
}

func TestKeepAliveHoldsIdleSession(t *testing.T) {
	var connections atomic.Int32
	srv, done := telemetryServer(t, nil, &connections, nil)
	defer srv.Close()
	defer close(done)

	c := newTestClient(t, srv, "", WithReconnectPolicy(fastPolicy(0)), WithReadTimeout(100*time.Millisecond))
	c.ConnectWebSocket(nil)
	defer c.DisconnectWebSocket()

	waitFor(t, 2*time.Second, c.IsConnected, "connection")
	time.Sleep(400 * time.Millisecond)
	if !c.IsConnected() {
		t.Errorf("Session answering pings should stay connected")
	}
	if n := connections.Load(); n != 1 {
		t.Errorf("Expected a single session, got %d", n)
	}
}

func TestBackoffResetsAfterHandshakeAndGrowsOnFailures(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch requests.Add(1) {
		case 1:
			conn, err := testUpgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			_ = conn.UnderlyingConn().Close()
		case 2:
			conn, err := testUpgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		default:
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	policy := ReconnectPolicy{BaseDelay: time.Millisecond, MaxDelay: time.Second, MaxAttempts: 0}
	c := newTestClient(t, srv, "", WithReconnectPolicy(policy))

	var mu sync.Mutex
	var delays []time.Duration
	c.onBackoff = func(attempts int, delay time.Duration) {
		mu.Lock()
		delays = append(delays, delay)
		mu.Unlock()
	}
	c.ConnectWebSocket(nil)

	waitFor(t, 3*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delays) >= 5
	}, "five backoff delays")
	c.DisconnectWebSocket()

	want := []time.Duration{
		policy.delay(1), // abrupt drop after a good handshake
		policy.delay(0), // clean close
		policy.delay(1), // consecutive dial failures
		policy.delay(2),
		policy.delay(3),
	}
	mu.Lock()
	defer mu.Unlock()
	for i, d := range want {
		if delays[i] != d {
			t.Errorf("delay[%d] = %v, want %v (all: %v)", i, delays[i], d, delays)
		}
	}
}

func TestReconnectRightAfterDisconnect(t *testing.T) {
	var connections atomic.Int32
	srv, done := telemetryServer(t, nil, &connections, nil)
	defer srv.Close()
	defer close(done)

	c := newTestClient(t, srv, "", WithReconnectPolicy(fastPolicy(0)))
	c.ConnectWebSocket(nil)
	waitFor(t, 2*time.Second, c.IsConnected, "first connection")

	c.DisconnectWebSocket()
	c.ConnectWebSocket(nil)
	defer c.DisconnectWebSocket()

	waitFor(t, 2*time.Second, func() bool { return connections.Load() == 2 && c.IsConnected() }, "second connection")
}

func TestDisconnectCancelsPendingRestart(t *testing.T) {
	srv, done := telemetryServer(t, nil, nil, nil)
	defer srv.Close()
	defer close(done)

	c := newTestClient(t, srv, "", WithReconnectPolicy(fastPolicy(0)))
	c.ConnectWebSocket(nil)
	waitFor(t, 2*time.Second, c.IsConnected, "connection")

	c.DisconnectWebSocket()
	c.ConnectWebSocket(nil)
	c.DisconnectWebSocket()

	waitFor(t, 2*time.Second, func() bool { return c.LinkState() == LinkStopped }, "stopped state")
	time.Sleep(50 * time.Millisecond)
	if c.IsConnected() || c.LinkState() != LinkStopped {
		t.Errorf("Loop should stay stopped, connected=%v state=%v", c.IsConnected(), c.LinkState())
	}
}
