package store

import (
	"errors"
	"fmt"
	"os"

	"github.com/moyoez/camfleet/types"
)

// LoadDevices reads cameras.json. A missing file is an empty registry.
func (s *Store) LoadDevices() ([]types.PersistedDevice, error) {
	s.devicesMu.Lock()
	defer s.devicesMu.Unlock()

	var doc types.DevicesPersistence
	if _, err := s.readJSON(DevicesFile, &doc); err != nil {
		return nil, err
	}
	return doc.Cameras, nil
}

// SaveDevices rewrites cameras.json with the given snapshot.
func (s *Store) SaveDevices(devices []types.PersistedDevice) error {
	s.devicesMu.Lock()
	defer s.devicesMu.Unlock()

	doc := types.DevicesPersistence{Cameras: make([]types.PersistedDevice, 0, len(devices))}
	for _, d := range devices {
		if !s.opts.Settings {
			d.StreamSettings = nil
			d.CameraSettings = nil
		}
		doc.Cameras = append(doc.Cameras, d)
	}
	return s.writeJSON(DevicesFile, doc)
}

// DeleteDevices removes cameras.json. A missing file is not an error.
func (s *Store) DeleteDevices() error {
	s.devicesMu.Lock()
	defer s.devicesMu.Unlock()

	if err := os.Remove(s.path(DevicesFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: failed to delete %s: %v", types.ErrPersistenceFailed, DevicesFile, err)
	}
	return nil
}
