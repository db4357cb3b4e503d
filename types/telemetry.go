package types

// TelemetryMessage is one frame of the camera's WebSocket telemetry feed (server to client, ~1Hz).
type TelemetryMessage struct {
	Fps           float64       `json:"fps"`
	Bitrate       int           `json:"bitrate"`
	QueueMs       int           `json:"queue_ms"`
	Battery       float64       `json:"battery"`
	TempC         float64       `json:"temp_c"`
	WifiRssi      int           `json:"wifi_rssi"`
	CpuUsage      float64       `json:"cpu_usage"`
	NdiState      NdiState      `json:"ndi_state"`
	DroppedFrames int           `json:"dropped_frames"`
	ChargingState ChargingState `json:"charging_state"`
}
