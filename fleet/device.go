package fleet

import (
	"context"
	"fmt"

	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

func (m *Manager) GetStatus(ctx context.Context, id string) (*types.StatusResponse, error) {
	client, err := m.client(id)
	if err != nil {
		return nil, err
	}
	return client.GetStatus(ctx)
}

func (m *Manager) GetCapabilities(ctx context.Context, id string) ([]types.Capability, error) {
	client, err := m.client(id)
	if err != nil {
		return nil, err
	}
	return client.GetCapabilities(ctx)
}

// StartStream starts one camera and remembers req as its last-applied stream settings.
func (m *Manager) StartStream(ctx context.Context, id string, req types.StreamStartRequest) error {
	client, err := m.client(id)
	if err != nil {
		return err
	}
	if err := client.StartStream(ctx, req); err != nil {
		return err
	}
	if m.recordStream(id, client, req) {
		m.persist()
	}
	return nil
}

func (m *Manager) StopStream(ctx context.Context, id string) error {
	client, err := m.client(id)
	if err != nil {
		return err
	}
	return client.StopStream(ctx)
}

// UpdateCameraSettings applies settings and remembers them as the last-applied camera settings.
func (m *Manager) UpdateCameraSettings(ctx context.Context, id string, req types.CameraSettingsRequest) error {
	client, err := m.client(id)
	if err != nil {
		return err
	}
	if err := client.UpdateSettings(ctx, req); err != nil {
		return err
	}
	if m.recordCamera(id, client, req) {
		m.persist()
	}
	return nil
}

// UpdateStreamSettings stores stream settings for the next start without contacting the camera.
func (m *Manager) UpdateStreamSettings(id string, req types.StreamStartRequest) error {
	m.mu.Lock()
	e, ok := m.devices[id]
	if ok {
		r := req
		e.settings.Stream = &r
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("camera %s: %w", id, types.ErrNotFound)
	}
	m.persist()
	tool.DefaultLogger.Infof("Updated stream settings for camera: %s", id)
	return nil
}

func (m *Manager) MeasureWhiteBalance(ctx context.Context, id string) (*types.WhiteBalanceMeasureResponse, error) {
	client, err := m.client(id)
	if err != nil {
		return nil, err
	}
	return client.MeasureWhiteBalance(ctx)
}

// PersistedSettings returns the last-applied settings of a camera.
func (m *Manager) PersistedSettings(id string) (types.PersistedSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.devices[id]
	if !ok {
		return types.PersistedSettings{}, fmt.Errorf("camera %s: %w", id, types.ErrNotFound)
	}
	return e.settings, nil
}

// recordStream stores req if id still maps to client. It reports whether anything changed.
func (m *Manager) recordStream(id string, client DeviceClient, req types.StreamStartRequest) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.devices[id]
	if !ok || e.client != client {
		return false
	}
	r := req
	e.settings.Stream = &r
	return true
}

func (m *Manager) recordCamera(id string, client DeviceClient, req types.CameraSettingsRequest) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.devices[id]
	if !ok || e.client != client {
		return false
	}
	r := req
	e.settings.Camera = &r
	return true
}
