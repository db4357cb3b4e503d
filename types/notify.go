package types

// Notification types pushed to local subscribers.
const (
	NotifyTypeTelemetry         = "telemetry"
	NotifyTypeDeviceAdded       = "device_added"
	NotifyTypeDeviceRemoved     = "device_removed"
	NotifyTypeDeviceRenamed     = "device_renamed"
	NotifyTypeDeviceDiscovered  = "device_discovered"
	NotifyTypeDeviceUpdated     = "device_updated"
	NotifyTypeDeviceLost        = "device_lost"
	NotifyTypeGroupCommandEnded = "group_command_ended"
)

// Notification represents a notification message structure
type Notification struct {
	ID      string         `json:"id,omitempty"`
	Type    string         `json:"type,omitempty"`    // Notification type, e.g. "telemetry", "device_added", etc.
	Title   string         `json:"title,omitempty"`   // Notification title
	Message string         `json:"message,omitempty"` // Notification message/content
	Data    map[string]any `json:"data,omitempty"`    // Additional data fields
}
