package types

// AddDeviceRequest is the body of POST /api/self/v1/devices.
type AddDeviceRequest struct {
	IP    string `json:"ip"`
	Port  int    `json:"port"`
	Token string `json:"token"`
}

// RenameDeviceRequest is the body of PATCH /api/self/v1/devices/:id.
type RenameDeviceRequest struct {
	Alias string `json:"alias"`
}

// GroupStartRequest is the body of POST /api/self/v1/group/stream/start.
type GroupStartRequest struct {
	CameraIDs []string `json:"camera_ids"`
	StreamStartRequest
}

// GroupIDsRequest carries the target ids of a batch command.
type GroupIDsRequest struct {
	CameraIDs []string `json:"camera_ids"`
}

// GroupSettingsRequest is the body of POST /api/self/v1/group/camera.
type GroupSettingsRequest struct {
	CameraIDs []string              `json:"camera_ids"`
	Settings  CameraSettingsRequest `json:"settings"`
}
