package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/moyoez/camfleet/types"
)

func ptr[T any](v T) *T { return &v }

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	s, err := New(t.TempDir(), opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestMissingFilesYieldDefaults(t *testing.T) {
	s := newTestStore(t, Options{Settings: true, Profiles: true})

	devices, err := s.LoadDevices()
	if err != nil {
		t.Fatalf("LoadDevices failed: %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("Expected empty registry, got %d", len(devices))
	}
	if len(s.Profiles()) != 0 {
		t.Errorf("Expected no profiles")
	}
	if got := s.AppSettings(); got != types.DefaultAppSettings() {
		t.Errorf("Expected default app settings, got %+v", got)
	}
}

func TestSaveAndLoadDevices(t *testing.T) {
	s := newTestStore(t, Options{Settings: true, Profiles: true})
	stream := types.DefaultStreamSettings()
	in := []types.PersistedDevice{{
		ID:             "10.0.0.5:8080",
		Alias:          "Cam1",
		IP:             "10.0.0.5",
		Port:           8080,
		Token:          "tok",
		StreamSettings: &stream,
	}}
	if err := s.SaveDevices(in); err != nil {
		t.Fatalf("SaveDevices failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(s.Dir(), DevicesFile))
	if err != nil {
		t.Fatalf("read cameras.json: %v", err)
	}
	if !strings.Contains(string(raw), `"cameras"`) || !strings.Contains(string(raw), `"stream_settings"`) {
		t.Errorf("Unexpected cameras.json layout: %s", raw)
	}

	reopened, err := New(s.Dir(), s.Options())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	out, err := reopened.LoadDevices()
	if err != nil {
		t.Fatalf("LoadDevices failed: %v", err)
	}
	if len(out) != 1 || out[0].ID != "10.0.0.5:8080" || out[0].StreamSettings == nil || out[0].StreamSettings.Bitrate != 10_000_000 {
		t.Errorf("Unexpected devices after reload: %+v", out)
	}

	leftovers, _ := filepath.Glob(filepath.Join(s.Dir(), "*.tmp-*"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestSettingsToggleStripsLastApplied(t *testing.T) {
	s := newTestStore(t, Options{Settings: false, Profiles: true})
	stream := types.DefaultStreamSettings()
	if err := s.SaveDevices([]types.PersistedDevice{{ID: "a:1", IP: "a", Port: 1, StreamSettings: &stream}}); err != nil {
		t.Fatalf("SaveDevices failed: %v", err)
	}
	out, _ := s.LoadDevices()
	if len(out) != 1 || out[0].StreamSettings != nil {
		t.Errorf("stream settings should not be persisted when disabled: %+v", out)
	}
}

func TestDeleteDevices(t *testing.T) {
	s := newTestStore(t, Options{Settings: true, Profiles: true})
	if err := s.DeleteDevices(); err != nil {
		t.Fatalf("deleting a missing file should succeed: %v", err)
	}
	_ = s.SaveDevices([]types.PersistedDevice{{ID: "a:1"}})
	if err := s.DeleteDevices(); err != nil {
		t.Fatalf("DeleteDevices failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), DevicesFile)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("cameras.json still exists")
	}
}

func TestUpsertProfileIsIdempotent(t *testing.T) {
	s := newTestStore(t, Options{Settings: true, Profiles: true})
	p := types.Profile{Name: "Stage", Settings: types.CameraSettingsRequest{Iso: ptr(400)}}

	for i := 0; i < 3; i++ {
		if err := s.UpsertProfile(p); err != nil {
			t.Fatalf("UpsertProfile failed: %v", err)
		}
	}
	profiles := s.Profiles()
	if len(profiles) != 1 {
		t.Fatalf("Expected 1 profile after repeated upsert, got %d", len(profiles))
	}

	p.Settings.Iso = ptr(800)
	_ = s.UpsertProfile(p)
	_ = s.UpsertProfile(types.Profile{Name: "Outdoor"})
	profiles = s.Profiles()
	if len(profiles) != 2 || profiles[0].Name != "Stage" || *profiles[0].Settings.Iso != 800 {
		t.Errorf("Unexpected profiles after update: %+v", profiles)
	}

	var doc types.ProfilesPersistence
	raw, err := os.ReadFile(filepath.Join(s.Dir(), ProfilesFile))
	if err != nil {
		t.Fatalf("read profiles.json: %v", err)
	}
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parse profiles.json: %v", err)
	}
	if len(doc.Profiles) != 2 {
		t.Errorf("profiles.json has %d entries, want 2", len(doc.Profiles))
	}
}

func TestUpsertProfileRequiresName(t *testing.T) {
	s := newTestStore(t, Options{Profiles: true})
	if err := s.UpsertProfile(types.Profile{Name: "  "}); err == nil {
		t.Errorf("Expected error for blank profile name")
	}
}

func TestDeleteProfile(t *testing.T) {
	s := newTestStore(t, Options{Profiles: true})
	_ = s.UpsertProfile(types.Profile{Name: "Stage"})

	if err := s.DeleteProfile("Missing"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteProfile("Stage"); err != nil {
		t.Fatalf("DeleteProfile failed: %v", err)
	}
	if _, ok := s.Profile("Stage"); ok {
		t.Errorf("profile still present")
	}
}

func TestProfilesInMemoryWhenDisabled(t *testing.T) {
	s := newTestStore(t, Options{Profiles: false})
	_ = s.UpsertProfile(types.Profile{Name: "Stage"})
	if _, ok := s.Profile("Stage"); !ok {
		t.Errorf("profile should be kept in memory")
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), ProfilesFile)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("profiles.json should not be written when disabled")
	}
}

func TestAppSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t, Options{})
	settings := types.DefaultAppSettings()
	settings.DefaultCodec = "hevc"
	settings.Theme = "dark"
	if err := s.SaveAppSettings(settings); err != nil {
		t.Fatalf("SaveAppSettings failed: %v", err)
	}
	reopened, err := New(s.Dir(), Options{})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if got := reopened.AppSettings(); got.DefaultCodec != "hevc" || got.Theme != "dark" {
		t.Errorf("Unexpected settings after reload: %+v", got)
	}
}

func TestAppSettingsWriteFailureKeepsCommittedValue(t *testing.T) {
	s := newTestStore(t, Options{})
	if err := os.RemoveAll(s.Dir()); err != nil {
		t.Fatal(err)
	}
	settings := types.DefaultAppSettings()
	settings.Theme = "dark"
	if err := s.SaveAppSettings(settings); err != nil {
		t.Errorf("Write failure should be logged, not returned: %v", err)
	}
	if got := s.AppSettings().Theme; got != "dark" {
		t.Errorf("In-memory theme = %q, want dark", got)
	}
}

func TestCorruptFileIsPersistenceFailure(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, SettingsFile), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(dir, Options{}); !errors.Is(err, types.ErrPersistenceFailed) {
		t.Errorf("Expected ErrPersistenceFailed, got %v", err)
	}
}
