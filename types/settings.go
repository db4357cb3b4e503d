package types

// PersistedSettings holds the last settings successfully applied to a device.
// Kept apart from the live status so a restart can reapply them when the camera cannot be polled.
type PersistedSettings struct {
	Stream *StreamStartRequest    `json:"stream_settings,omitempty"`
	Camera *CameraSettingsRequest `json:"camera_settings,omitempty"`
}

// PersistedDevice is one entry of cameras.json.
type PersistedDevice struct {
	ID             string                 `json:"id"`
	Alias          string                 `json:"alias"`
	IP             string                 `json:"ip"`
	Port           int                    `json:"port"`
	Token          string                 `json:"token"`
	StreamSettings *StreamStartRequest    `json:"stream_settings,omitempty"`
	CameraSettings *CameraSettingsRequest `json:"camera_settings,omitempty"`
}

// DevicesPersistence is the on-disk shape of cameras.json.
type DevicesPersistence struct {
	Cameras []PersistedDevice `json:"cameras"`
}

// AppSettings is the user-facing settings record stored in settings.json.
type AppSettings struct {
	DefaultResolution  string `json:"default_resolution"`
	DefaultFramerate   int    `json:"default_framerate"`
	DefaultBitrate     int    `json:"default_bitrate"`
	DefaultCodec       string `json:"default_codec"`
	AutoDiscovery      bool   `json:"auto_discovery"`
	AutoReconnect      bool   `json:"auto_reconnect"`
	StatusPollInterval int    `json:"status_poll_interval_s"`
	ConfirmStopAll     bool   `json:"confirm_stop_all"`
	Theme              string `json:"theme"`
}

// DefaultAppSettings is used when settings.json does not exist.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		DefaultResolution:  "1920x1080",
		DefaultFramerate:   30,
		DefaultBitrate:     10_000_000,
		DefaultCodec:       "h264",
		AutoDiscovery:      true,
		AutoReconnect:      true,
		StatusPollInterval: 5,
		ConfirmStopAll:     true,
		Theme:              "system",
	}
}

// DefaultStreamSettings is the stream configuration used when a device has nothing persisted.
func DefaultStreamSettings() StreamStartRequest {
	return StreamStartRequest{
		Resolution: "1920x1080",
		Framerate:  30,
		Bitrate:    10_000_000,
		Codec:      "h264",
	}
}

// StreamSettings returns the stream request described by the app defaults.
// Zero fields fall back to DefaultStreamSettings.
func (s AppSettings) StreamSettings() StreamStartRequest {
	def := DefaultStreamSettings()
	if s.DefaultResolution != "" {
		def.Resolution = s.DefaultResolution
	}
	if s.DefaultFramerate > 0 {
		def.Framerate = s.DefaultFramerate
	}
	if s.DefaultBitrate > 0 {
		def.Bitrate = s.DefaultBitrate
	}
	if s.DefaultCodec != "" {
		def.Codec = s.DefaultCodec
	}
	return def
}
