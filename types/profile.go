package types

// Profile is a named camera settings template applicable to any device.
type Profile struct {
	Name     string                `json:"name"`
	Settings CameraSettingsRequest `json:"settings"`
}

// ProfilesPersistence is the on-disk shape of profiles.json.
type ProfilesPersistence struct {
	Profiles []Profile `json:"profiles"`
}
