package fleet

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moyoez/camfleet/camera"
	"github.com/moyoez/camfleet/store"
	"github.com/moyoez/camfleet/types"
)

// fakeClient is an in-memory camera.
type fakeClient struct {
	mu          sync.Mutex
	status      *types.StatusResponse
	statusErr   error
	startErr    error
	stopErr     error
	settingsErr error
	panicOnStop bool
	delay       time.Duration

	started  []types.StreamStartRequest
	stopped  int
	settings []types.CameraSettingsRequest

	onTelemetry  camera.TelemetryHandler
	onDisconnect func()
	connects     atomic.Int32
	disconnects  atomic.Int32
	connected    atomic.Bool
	inflight     *atomic.Int32
	maxInflight  *atomic.Int32
}

func newFakeClient(alias string) *fakeClient {
	return &fakeClient{status: &types.StatusResponse{Alias: alias, NdiState: types.NdiStateIdle}}
}

func (f *fakeClient) enter() func() {
	if f.inflight != nil {
		n := f.inflight.Add(1)
		for {
			prev := f.maxInflight.Load()
			if n <= prev || f.maxInflight.CompareAndSwap(prev, n) {
				break
			}
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() {
		if f.inflight != nil {
			f.inflight.Add(-1)
		}
	}
}

func (f *fakeClient) setStatusErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusErr = err
}

func (f *fakeClient) GetStatus(ctx context.Context) (*types.StatusResponse, error) {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	s := *f.status
	return &s, nil
}

func (f *fakeClient) GetCapabilities(ctx context.Context) ([]types.Capability, error) {
	return []types.Capability{{Resolution: "1920x1080", Fps: []int{30}, Codec: []string{"h264"}}}, nil
}

func (f *fakeClient) StartStream(ctx context.Context, req types.StreamStartRequest) error {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, req)
	return nil
}

func (f *fakeClient) StopStream(ctx context.Context) error {
	defer f.enter()()
	if f.panicOnStop {
		panic("stop exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopErr != nil {
		return f.stopErr
	}
	f.stopped++
	return nil
}

func (f *fakeClient) UpdateSettings(ctx context.Context, req types.CameraSettingsRequest) error {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settingsErr != nil {
		return f.settingsErr
	}
	f.settings = append(f.settings, req)
	return nil
}

func (f *fakeClient) MeasureWhiteBalance(ctx context.Context) (*types.WhiteBalanceMeasureResponse, error) {
	return &types.WhiteBalanceMeasureResponse{SceneCctK: 5600, Tint: 1.5}, nil
}

func (f *fakeClient) ConnectWebSocket(onTelemetry camera.TelemetryHandler) {
	f.mu.Lock()
	f.onTelemetry = onTelemetry
	f.mu.Unlock()
	f.connects.Add(1)
	f.connected.Store(true)
}

func (f *fakeClient) DisconnectWebSocket() {
	f.disconnects.Add(1)
	f.connected.Store(false)
	if f.onDisconnect != nil {
		f.onDisconnect()
	}
}

func (f *fakeClient) IsConnected() bool {
	return f.connected.Load()
}

func (f *fakeClient) emit(frame types.TelemetryMessage) {
	f.mu.Lock()
	h := f.onTelemetry
	f.mu.Unlock()
	if h != nil {
		h(frame)
	}
}

func (f *fakeClient) startedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

// fakeNetwork hands out fake clients by address; unknown addresses refuse connections.
type fakeNetwork struct {
	mu      sync.Mutex
	cameras map[string]*fakeClient
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{cameras: make(map[string]*fakeClient)}
}

func (n *fakeNetwork) put(ip string, port int, c *fakeClient) *fakeClient {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cameras[types.DeviceID(ip, port)] = c
	return c
}

func (n *fakeNetwork) factory(ip string, port int, token string) DeviceClient {
	n.mu.Lock()
	defer n.mu.Unlock()
	if c, ok := n.cameras[types.DeviceID(ip, port)]; ok {
		return c
	}
	return &fakeClient{statusErr: fmt.Errorf("%w: connection refused", camera.ErrConnectFailed)}
}

type recordedTelemetry struct {
	id    string
	frame types.TelemetryMessage
}

type recordingNotifier struct {
	mu            sync.Mutex
	telemetry     []recordedTelemetry
	notifications []*types.Notification
}

func (r *recordingNotifier) Telemetry(id string, frame types.TelemetryMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.telemetry = append(r.telemetry, recordedTelemetry{id: id, frame: frame})
}

func (r *recordingNotifier) Notify(n *types.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

func (r *recordingNotifier) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.notifications))
	for _, n := range r.notifications {
		out = append(out, n.Type)
	}
	return out
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(t.TempDir(), store.Options{Settings: true, Profiles: true})
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}
	return s
}

func newTestManager(t *testing.T, net *fakeNetwork, opts ...Option) (*Manager, *store.Store) {
	t.Helper()
	s := newTestStore(t)
	opts = append([]Option{WithClientFactory(net.factory)}, opts...)
	return NewManager(s, opts...), s
}

func mustAdd(t *testing.T, m *Manager, ip string, port int) string {
	t.Helper()
	id, err := m.AddDevice(context.Background(), ip, port, "tok")
	if err != nil {
		t.Fatalf("AddDevice(%s:%d) failed: %v", ip, port, err)
	}
	return id
}
