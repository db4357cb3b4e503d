package types

import "fmt"

// ConnectionState is the controller's view of a registered camera.
type ConnectionState string

const (
	ConnectionStateConnected    ConnectionState = "connected"
	ConnectionStateDisconnected ConnectionState = "disconnected"
	ConnectionStateConnecting   ConnectionState = "connecting"
	ConnectionStateError        ConnectionState = "error"
)

// Device is one registered camera as exposed to callers.
type Device struct {
	ID              string            `json:"id"`
	Alias           string            `json:"alias"`
	IP              string            `json:"ip"`
	Port            int               `json:"port"`
	Token           string            `json:"token"`
	Status          *StatusResponse   `json:"status,omitempty"` // nil until the first successful poll
	ConnectionState ConnectionState   `json:"connection_state"`
	Telemetry       *TelemetryMessage `json:"telemetry,omitempty"` // last frame from the telemetry feed
}

// DeviceID derives the registry identifier from a network address.
func DeviceID(ip string, port int) string {
	return fmt.Sprintf("%s:%d", ip, port)
}

// DiscoveredDevice is a camera currently advertised on the local network.
type DiscoveredDevice struct {
	Alias      string            `json:"alias"`
	IP         string            `json:"ip"`
	Port       int               `json:"port"`
	TxtRecords map[string]string `json:"txt_records"`
	Source     string            `json:"source,omitempty"` // mdns | sweep
}

// GroupCommandResult is the outcome of one device in a batch operation.
type GroupCommandResult struct {
	CameraID string `json:"camera_id"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}
