package fleet

import (
	"context"
	"time"

	"github.com/moyoez/camfleet/camera"
	"github.com/moyoez/camfleet/types"
)

// DeviceClient is the per-camera surface the manager drives. *camera.Client implements it.
type DeviceClient interface {
	GetStatus(ctx context.Context) (*types.StatusResponse, error)
	GetCapabilities(ctx context.Context) ([]types.Capability, error)
	StartStream(ctx context.Context, req types.StreamStartRequest) error
	StopStream(ctx context.Context) error
	UpdateSettings(ctx context.Context, req types.CameraSettingsRequest) error
	MeasureWhiteBalance(ctx context.Context) (*types.WhiteBalanceMeasureResponse, error)
	ConnectWebSocket(onTelemetry camera.TelemetryHandler)
	DisconnectWebSocket()
	IsConnected() bool
}

// ClientFactory builds a client for a camera address. It must not perform network I/O.
type ClientFactory func(ip string, port int, token string) DeviceClient

// CameraClientFactory returns a factory producing *camera.Client with the given timeout and reconnect policy.
func CameraClientFactory(timeout time.Duration, policy camera.ReconnectPolicy) ClientFactory {
	return func(ip string, port int, token string) DeviceClient {
		return camera.NewClient(ip, port, token, camera.WithTimeout(timeout), camera.WithReconnectPolicy(policy))
	}
}

// Notifier receives telemetry frames and registry events.
type Notifier interface {
	Telemetry(deviceID string, frame types.TelemetryMessage)
	Notify(notification *types.Notification)
}

type nopNotifier struct{}

func (nopNotifier) Telemetry(string, types.TelemetryMessage) {}

func (nopNotifier) Notify(*types.Notification) {}

// Persistence is the storage the manager writes through. *store.Store implements it.
type Persistence interface {
	LoadDevices() ([]types.PersistedDevice, error)
	SaveDevices(devices []types.PersistedDevice) error
	DeleteDevices() error
	Profiles() []types.Profile
	Profile(name string) (types.Profile, bool)
	UpsertProfile(profile types.Profile) error
	DeleteProfile(name string) error
	AppSettings() types.AppSettings
	SaveAppSettings(settings types.AppSettings) error
}
