// Package fleet keeps the registry of cameras and dispatches commands across them.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/moyoez/camfleet/camera"
	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

type entry struct {
	device   types.Device
	client   DeviceClient
	settings types.PersistedSettings
}

// Manager owns the registry. Network calls never run while mu is held;
// persistence writes are serialized by saveMu and snapshot the registry inside it.
type Manager struct {
	mu      sync.RWMutex
	devices map[string]*entry

	saveMu sync.Mutex
	store  Persistence

	newClient  ClientFactory
	dispatcher *Dispatcher
	notifier   Notifier
}

type Option func(*Manager)

func WithClientFactory(factory ClientFactory) Option {
	return func(m *Manager) {
		if factory != nil {
			m.newClient = factory
		}
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithMaxConcurrent sets the dispatcher's global slot count.
func WithMaxConcurrent(n int) Option {
	return func(m *Manager) {
		m.dispatcher = NewDispatcher(n)
	}
}

func NewManager(store Persistence, opts ...Option) *Manager {
	m := &Manager{
		devices:    make(map[string]*entry),
		store:      store,
		newClient:  CameraClientFactory(tool.DefaultTimeout, camera.DefaultReconnectPolicy()),
		dispatcher: NewDispatcher(DefaultMaxConcurrent),
		notifier:   nopNotifier{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Dispatcher() *Dispatcher {
	return m.dispatcher
}

// AddDevice fetches the camera status and registers it under ip:port.
// A failed status call returns the error and leaves the registry untouched.
func (m *Manager) AddDevice(ctx context.Context, ip string, port int, token string) (string, error) {
	id, err := m.addDevice(ctx, ip, port, token, nil, true)
	if err != nil {
		return "", err
	}
	m.notifier.Notify(&types.Notification{
		ID:      tool.GenerateRandomUUID(),
		Type:    types.NotifyTypeDeviceAdded,
		Title:   "Camera Added",
		Message: id,
		Data:    map[string]any{"camera_id": id},
	})
	return id, nil
}

// addDevice registers a camera whose status was fetched. restored carries state read from cameras.json.
func (m *Manager) addDevice(ctx context.Context, ip string, port int, token string, restored *types.PersistedDevice, persist bool) (string, error) {
	if ip == "" || port <= 0 || port > 65535 {
		return "", fmt.Errorf("invalid camera address %q:%d", ip, port)
	}
	id := types.DeviceID(ip, port)
	client := m.newClient(ip, port, token)

	status, err := client.GetStatus(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to connect to camera %s: %w", id, err)
	}

	e := &entry{
		device: types.Device{
			ID:              id,
			Alias:           status.Alias,
			IP:              ip,
			Port:            port,
			Token:           token,
			Status:          status,
			ConnectionState: types.ConnectionStateConnected,
		},
		client: client,
	}
	if restored != nil {
		if restored.Alias != "" {
			e.device.Alias = restored.Alias
		}
		e.settings = types.PersistedSettings{Stream: restored.StreamSettings, Camera: restored.CameraSettings}
	}

	m.mu.Lock()
	old := m.devices[id]
	if old != nil && restored == nil {
		e.settings = old.settings
	}
	m.devices[id] = e
	// Connect before releasing the lock so a concurrent removal always
	// finds a running loop to stop.
	client.ConnectWebSocket(m.telemetryHandler(id, client))
	m.mu.Unlock()

	if old != nil {
		old.client.DisconnectWebSocket()
		tool.DefaultLogger.Infof("Replaced existing camera entry: %s", id)
	}

	m.mu.RLock()
	registered := m.devices[id] == e
	m.mu.RUnlock()
	if !registered {
		return "", fmt.Errorf("camera %s removed during registration: %w", id, types.ErrNotFound)
	}
	tool.DefaultLogger.Infof("Added camera: %s (%s)", id, e.device.Alias)

	if persist {
		m.persist()
	}
	return id, nil
}

func (m *Manager) telemetryHandler(id string, client DeviceClient) camera.TelemetryHandler {
	return func(frame types.TelemetryMessage) {
		m.mu.Lock()
		e, ok := m.devices[id]
		current := ok && e.client == client
		if current {
			f := frame
			e.device.Telemetry = &f
		}
		m.mu.Unlock()
		if current {
			m.notifier.Telemetry(id, frame)
		}
	}
}

// RemoveDevice disconnects and forgets a camera together with its last-applied settings.
func (m *Manager) RemoveDevice(id string) error {
	m.mu.Lock()
	e, ok := m.devices[id]
	if ok {
		delete(m.devices, id)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("camera %s: %w", id, types.ErrNotFound)
	}

	e.client.DisconnectWebSocket()
	tool.DefaultLogger.Infof("Removed camera: %s", id)
	m.persist()
	m.notifier.Notify(&types.Notification{
		ID:      tool.GenerateRandomUUID(),
		Type:    types.NotifyTypeDeviceRemoved,
		Title:   "Camera Removed",
		Message: id,
		Data:    map[string]any{"camera_id": id},
	})
	return nil
}

// RenameDevice changes the display alias. The camera itself is not contacted.
func (m *Manager) RenameDevice(id, alias string) error {
	m.mu.Lock()
	e, ok := m.devices[id]
	if ok {
		e.device.Alias = alias
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("camera %s: %w", id, types.ErrNotFound)
	}

	tool.DefaultLogger.Infof("Updated camera %s alias to: %s", id, alias)
	m.persist()
	m.notifier.Notify(&types.Notification{
		ID:      tool.GenerateRandomUUID(),
		Type:    types.NotifyTypeDeviceRenamed,
		Title:   "Camera Renamed",
		Message: fmt.Sprintf("%s is now %s", id, alias),
		Data:    map[string]any{"camera_id": id, "alias": alias},
	})
	return nil
}

// ListDevices refreshes the status of every registered camera through the dispatcher and returns the refreshed registry.
// A failed status call marks the device Error and keeps its previous status.
func (m *Manager) ListDevices(ctx context.Context) []types.Device {
	targets := m.allTargets()
	m.dispatcher.Dispatch(ctx, targets, func(ctx context.Context, id string, client DeviceClient) error {
		status, err := client.GetStatus(ctx)
		m.recordStatus(id, client, status, err)
		return err
	})
	return m.Devices()
}

func (m *Manager) recordStatus(id string, client DeviceClient, status *types.StatusResponse, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.devices[id]
	if !ok || e.client != client {
		return
	}
	if err != nil {
		tool.DefaultLogger.Warnf("Failed to get status for camera %s: %v", id, err)
		e.device.ConnectionState = types.ConnectionStateError
		return
	}
	e.device.Status = status
	e.device.ConnectionState = types.ConnectionStateConnected
}

// Devices returns the registry as stored, without probing, ordered by id.
func (m *Manager) Devices() []types.Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]types.Device, 0, len(m.devices))
	for _, e := range m.devices {
		result = append(result, e.device)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Device returns one registry entry.
func (m *Manager) Device(id string) (types.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.devices[id]
	if !ok {
		return types.Device{}, fmt.Errorf("camera %s: %w", id, types.ErrNotFound)
	}
	return e.device, nil
}

func (m *Manager) client(id string) (DeviceClient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.devices[id]
	if !ok {
		return nil, fmt.Errorf("camera %s: %w", id, types.ErrNotFound)
	}
	return e.client, nil
}

// resolve maps ids onto dispatch targets, keeping unknown ids with a nil client.
func (m *Manager) resolve(ids []string) []Target {
	m.mu.RLock()
	defer m.mu.RUnlock()
	targets := make([]Target, 0, len(ids))
	for _, id := range ids {
		t := Target{ID: id}
		if e, ok := m.devices[id]; ok {
			t.Client = e.client
		}
		targets = append(targets, t)
	}
	return targets
}

func (m *Manager) allTargets() []Target {
	m.mu.RLock()
	defer m.mu.RUnlock()
	targets := make([]Target, 0, len(m.devices))
	for id, e := range m.devices {
		targets = append(targets, Target{ID: id, Client: e.client})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].ID < targets[j].ID })
	return targets
}

// persist writes the registry snapshot. Failures are logged and never undo the mutation.
func (m *Manager) persist() {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	snapshot := m.persistedSnapshot()
	if err := m.store.SaveDevices(snapshot); err != nil {
		tool.DefaultLogger.Warnf("Failed to save cameras to disk: %v", err)
		return
	}
	tool.DefaultLogger.Debugf("Saved %d cameras", len(snapshot))
}

func (m *Manager) persistedSnapshot() []types.PersistedDevice {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.PersistedDevice, 0, len(m.devices))
	for _, e := range m.devices {
		out = append(out, types.PersistedDevice{
			ID:             e.device.ID,
			Alias:          e.device.Alias,
			IP:             e.device.IP,
			Port:           e.device.Port,
			Token:          e.device.Token,
			StreamSettings: e.settings.Stream,
			CameraSettings: e.settings.Camera,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadFromStore re-adds every camera in cameras.json. Unreachable cameras are skipped with a warning.
// It returns the number of cameras registered.
func (m *Manager) LoadFromStore(ctx context.Context) (int, error) {
	persisted, err := m.store.LoadDevices()
	if err != nil {
		return 0, err
	}
	if len(persisted) == 0 {
		tool.DefaultLogger.Info("No cameras file found, starting fresh")
		return 0, nil
	}
	tool.DefaultLogger.Infof("Loading %d cameras", len(persisted))

	loaded := 0
	for i := range persisted {
		p := persisted[i]
		id, err := m.addDevice(ctx, p.IP, p.Port, p.Token, &p, false)
		if err != nil {
			tool.DefaultLogger.Warnf("Failed to load camera %s: %v", p.Alias, err)
			continue
		}
		loaded++
		tool.DefaultLogger.Infof("Loaded camera: %s (%s)", p.Alias, id)
	}
	return loaded, nil
}

// DeleteDevicesData removes cameras.json and clears the registry, disconnecting every client.
func (m *Manager) DeleteDevicesData() error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.mu.Lock()
	removed := m.devices
	m.devices = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range removed {
		e.client.DisconnectWebSocket()
	}
	if err := m.store.DeleteDevices(); err != nil {
		return err
	}
	tool.DefaultLogger.Infof("Deleted cameras data (%d cameras cleared)", len(removed))
	return nil
}

// Close disconnects every telemetry feed. The registry is left intact.
func (m *Manager) Close() {
	m.mu.RLock()
	clients := make([]DeviceClient, 0, len(m.devices))
	for _, e := range m.devices {
		clients = append(clients, e.client)
	}
	m.mu.RUnlock()
	for _, c := range clients {
		c.DisconnectWebSocket()
	}
}

// IsNotFound reports whether err carries types.ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
