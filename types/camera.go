package types

/*
 Status payload example (GET /api/v1/status)

{
  "alias": "Cam1",
  "ndi_state": "idle", // streaming | idle
  "current": { "resolution": "1920x1080", "fps": 30, "bitrate": 10000000, "codec": "h264", ... },
  "telemetry": { "fps": 29.9, "bitrate": 9800000, "battery": 0.81, "temp_c": 38.5, ... },
  "capabilities": [ { "resolution": "1920x1080", "fps": [30, 60], "codec": ["h264", "hevc"] } ]
}

*/

// NdiState is the streaming state reported by a camera.
type NdiState string

const (
	NdiStateStreaming NdiState = "streaming"
	NdiStateIdle      NdiState = "idle"
)

// WhiteBalanceMode, ExposureMode and FocusMode are "auto" or "manual".
type WhiteBalanceMode string

type ExposureMode string

type FocusMode string

const (
	ModeAuto   = "auto"
	ModeManual = "manual"
)

// ChargingState is the battery charging state reported in telemetry.
type ChargingState string

const (
	ChargingStateCharging  ChargingState = "charging"
	ChargingStateFull      ChargingState = "full"
	ChargingStateUnplugged ChargingState = "unplugged"
)

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Alias        string          `json:"alias"`
	NdiState     NdiState        `json:"ndi_state"`
	Current      CurrentSettings `json:"current"`
	Telemetry    Telemetry       `json:"telemetry"`
	Capabilities []Capability    `json:"capabilities"`
}

// CurrentSettings holds the settings a camera is currently running with.
type CurrentSettings struct {
	Resolution     string           `json:"resolution"`
	Fps            int              `json:"fps"`
	Bitrate        int              `json:"bitrate"`
	Codec          string           `json:"codec"`
	WbMode         WhiteBalanceMode `json:"wb_mode"`
	WbKelvin       *int             `json:"wb_kelvin,omitempty"`
	WbTint         *float64         `json:"wb_tint,omitempty"`
	IsoMode        ExposureMode     `json:"iso_mode"`
	Iso            int              `json:"iso"`
	ShutterMode    ExposureMode     `json:"shutter_mode"`
	ShutterS       float64          `json:"shutter_s"`
	FocusMode      FocusMode        `json:"focus_mode"`
	ZoomFactor     float64          `json:"zoom_factor"`
	CameraPosition string           `json:"camera_position"`
	Lens           string           `json:"lens"`
}

// Telemetry is the telemetry snapshot embedded in a status response.
type Telemetry struct {
	Fps           float64        `json:"fps"`
	Bitrate       int            `json:"bitrate"`
	Battery       float64        `json:"battery"`
	TempC         float64        `json:"temp_c"`
	WifiRssi      int            `json:"wifi_rssi"`
	CpuUsage      float64        `json:"cpu_usage"`
	QueueMs       *int           `json:"queue_ms,omitempty"`
	DroppedFrames *int           `json:"dropped_frames,omitempty"`
	ChargingState *ChargingState `json:"charging_state,omitempty"`
}

// Capability describes one supported resolution and its options.
type Capability struct {
	Resolution string   `json:"resolution"`
	Fps        []int    `json:"fps"`
	Codec      []string `json:"codec"`
	Lens       *string  `json:"lens,omitempty"`
	MaxZoom    *float64 `json:"max_zoom,omitempty"`
}

// StreamStartRequest is the body of POST /api/v1/stream/start.
type StreamStartRequest struct {
	Resolution string `json:"resolution"`
	Framerate  int    `json:"framerate"`
	Bitrate    int    `json:"bitrate"`
	Codec      string `json:"codec"`
}

// CameraSettingsRequest is the body of POST /api/v1/camera. Nil fields are left unchanged on the device.
type CameraSettingsRequest struct {
	WbMode          *WhiteBalanceMode `json:"wb_mode,omitempty"`
	WbKelvin        *int              `json:"wb_kelvin,omitempty"`
	WbTint          *float64          `json:"wb_tint,omitempty"`
	IsoMode         *ExposureMode     `json:"iso_mode,omitempty"`
	Iso             *int              `json:"iso,omitempty"`
	ShutterMode     *ExposureMode     `json:"shutter_mode,omitempty"`
	ShutterS        *float64          `json:"shutter_s,omitempty"`
	FocusMode       *FocusMode        `json:"focus_mode,omitempty"`
	ZoomFactor      *float64          `json:"zoom_factor,omitempty"`
	Lens            *string           `json:"lens,omitempty"`
	CameraPosition  *string           `json:"camera_position,omitempty"`
	OrientationLock *string           `json:"orientation_lock,omitempty"`
	TorchLevel      *float64          `json:"torch_level,omitempty"`
}

// WhiteBalanceMeasureResponse is the body of POST /api/v1/camera/wb/measure.
type WhiteBalanceMeasureResponse struct {
	SceneCctK int     `json:"scene_cct_k"` // scene illumination temperature
	Tint      float64 `json:"tint"`
}

// ErrorResponse is the body a camera returns with any non-2xx status.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StreamSettingsFromStatus builds the stream request matching what the camera currently runs.
func StreamSettingsFromStatus(status *StatusResponse) *StreamStartRequest {
	if status == nil {
		return nil
	}
	return &StreamStartRequest{
		Resolution: status.Current.Resolution,
		Framerate:  status.Current.Fps,
		Bitrate:    status.Current.Bitrate,
		Codec:      status.Current.Codec,
	}
}

// CameraSettingsFromStatus builds the camera settings request matching what the camera currently runs.
func CameraSettingsFromStatus(status *StatusResponse) *CameraSettingsRequest {
	if status == nil {
		return nil
	}
	cur := status.Current
	return &CameraSettingsRequest{
		WbMode:         &cur.WbMode,
		WbKelvin:       cur.WbKelvin,
		WbTint:         cur.WbTint,
		IsoMode:        &cur.IsoMode,
		Iso:            &cur.Iso,
		ShutterMode:    &cur.ShutterMode,
		ShutterS:       &cur.ShutterS,
		FocusMode:      &cur.FocusMode,
		ZoomFactor:     &cur.ZoomFactor,
		Lens:           &cur.Lens,
		CameraPosition: &cur.CameraPosition,
	}
}
