// Package store persists the device registry, profiles and app settings as JSON files in one directory.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

const (
	DevicesFile  = "cameras.json"
	ProfilesFile = "profiles.json"
	SettingsFile = "settings.json"
)

// Options toggles the optional stores. Disabled stores live in memory only.
type Options struct {
	Settings bool // last-applied per-device settings in cameras.json
	Profiles bool
}

// Store owns the data directory. Every write replaces the whole file.
type Store struct {
	dir  string
	opts Options

	devicesMu sync.Mutex

	profilesMu sync.RWMutex
	profiles   []types.Profile

	settingsMu sync.RWMutex
	settings   types.AppSettings
}

// New opens (and creates) dir, loading profiles and app settings into memory.
// Missing files yield empty or default contents.
func New(dir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create data dir %s: %v", types.ErrPersistenceFailed, dir, err)
	}
	s := &Store{
		dir:      dir,
		opts:     opts,
		settings: types.DefaultAppSettings(),
	}
	if opts.Profiles {
		var doc types.ProfilesPersistence
		found, err := s.readJSON(ProfilesFile, &doc)
		if err != nil {
			return nil, err
		}
		if found {
			s.profiles = doc.Profiles
		}
		tool.DefaultLogger.Infof("Loaded %d profiles from %s", len(s.profiles), s.path(ProfilesFile))
	}
	settings := types.DefaultAppSettings()
	found, err := s.readJSON(SettingsFile, &settings)
	if err != nil {
		return nil, err
	}
	if found {
		s.settings = settings
	}
	return s, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Options() Options {
	return s.opts
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// readJSON decodes name into v; found is false when the file does not exist.
func (s *Store) readJSON(name string, v any) (found bool, err error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: failed to read %s: %v", types.ErrPersistenceFailed, name, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: failed to parse %s: %v", types.ErrPersistenceFailed, name, err)
	}
	return true, nil
}

// writeJSON writes v to a temp file in the data dir and renames it over name.
func (s *Store) writeJSON(name string, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal %s: %v", types.ErrPersistenceFailed, name, err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file for %s: %v", types.ErrPersistenceFailed, name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: failed to write %s: %v", types.ErrPersistenceFailed, name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: failed to sync %s: %v", types.ErrPersistenceFailed, name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: failed to close %s: %v", types.ErrPersistenceFailed, name, err)
	}
	if err := os.Rename(tmpName, s.path(name)); err != nil {
		cleanup()
		return fmt.Errorf("%w: failed to replace %s: %v", types.ErrPersistenceFailed, name, err)
	}
	return nil
}
