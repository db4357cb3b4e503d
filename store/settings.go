package store

import (
	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

// AppSettings returns the current app settings (defaults if settings.json never existed).
func (s *Store) AppSettings() types.AppSettings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

// SaveAppSettings replaces the app settings and rewrites settings.json.
// A failed write is logged; the in-memory value stays committed.
func (s *Store) SaveAppSettings(settings types.AppSettings) error {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	s.settings = settings
	if err := s.writeJSON(SettingsFile, settings); err != nil {
		tool.DefaultLogger.Errorf("Failed to persist app settings: %v", err)
	}
	return nil
}
