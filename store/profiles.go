package store

import (
	"fmt"
	"strings"

	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

// Profiles returns a copy of the stored profiles in insertion order.
func (s *Store) Profiles() []types.Profile {
	s.profilesMu.RLock()
	defer s.profilesMu.RUnlock()

	result := make([]types.Profile, len(s.profiles))
	copy(result, s.profiles)
	return result
}

// Profile looks a profile up by name.
func (s *Store) Profile(name string) (types.Profile, bool) {
	s.profilesMu.RLock()
	defer s.profilesMu.RUnlock()

	for _, p := range s.profiles {
		if p.Name == name {
			return p, true
		}
	}
	return types.Profile{}, false
}

// UpsertProfile replaces the profile with the same name or appends a new one.
// A failed file write is logged; the in-memory change stands.
func (s *Store) UpsertProfile(profile types.Profile) error {
	if strings.TrimSpace(profile.Name) == "" {
		return fmt.Errorf("profile name is required")
	}
	s.profilesMu.Lock()
	defer s.profilesMu.Unlock()

	found := false
	for i, p := range s.profiles {
		if p.Name == profile.Name {
			s.profiles[i] = profile
			found = true
			break
		}
	}
	if !found {
		s.profiles = append(s.profiles, profile)
	}
	s.flushProfilesLocked()
	return nil
}

// DeleteProfile removes a profile by name, returning types.ErrNotFound when absent.
func (s *Store) DeleteProfile(name string) error {
	s.profilesMu.Lock()
	defer s.profilesMu.Unlock()

	newList := make([]types.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		if p.Name != name {
			newList = append(newList, p)
		}
	}
	if len(newList) == len(s.profiles) {
		return fmt.Errorf("profile %q: %w", name, types.ErrNotFound)
	}
	s.profiles = newList
	s.flushProfilesLocked()
	return nil
}

func (s *Store) flushProfilesLocked() {
	if !s.opts.Profiles {
		return
	}
	doc := types.ProfilesPersistence{Profiles: s.profiles}
	if doc.Profiles == nil {
		doc.Profiles = []types.Profile{}
	}
	if err := s.writeJSON(ProfilesFile, doc); err != nil {
		tool.DefaultLogger.Errorf("Failed to persist profiles: %v", err)
	}
}
