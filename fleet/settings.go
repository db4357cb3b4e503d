package fleet

import (
	"github.com/moyoez/camfleet/types"
)

func (m *Manager) SaveProfile(name string, settings types.CameraSettingsRequest) error {
	return m.store.UpsertProfile(types.Profile{Name: name, Settings: settings})
}

func (m *Manager) Profiles() []types.Profile {
	return m.store.Profiles()
}

// DeleteProfile returns types.ErrNotFound for an unknown name.
func (m *Manager) DeleteProfile(name string) error {
	return m.store.DeleteProfile(name)
}

func (m *Manager) AppSettings() types.AppSettings {
	return m.store.AppSettings()
}

func (m *Manager) SaveAppSettings(settings types.AppSettings) error {
	return m.store.SaveAppSettings(settings)
}
