package fleet

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moyoez/camfleet/camera"
	"github.com/moyoez/camfleet/types"
)

func resultsByID(results []types.GroupCommandResult) map[string]types.GroupCommandResult {
	out := make(map[string]types.GroupCommandResult, len(results))
	for _, r := range results {
		out[r.CameraID] = r
	}
	return out
}

func TestGroupStopStreamWithMissingDevice(t *testing.T) {
	net := newFakeNetwork()
	net.put("10.0.0.1", 8080, newFakeClient("A"))
	b := net.put("10.0.0.2", 8080, newFakeClient("B"))
	b.stopErr = &camera.ServerError{StatusCode: 409, Code: "not_streaming", Message: "stream is not running"}
	m, _ := newTestManager(t, net)
	idA := mustAdd(t, m, "10.0.0.1", 8080)
	idB := mustAdd(t, m, "10.0.0.2", 8080)

	results := m.GroupStopStream(context.Background(), []string{idA, idB, "missing"})
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	byID := resultsByID(results)
	if !byID[idA].Success || byID[idA].Error != "" {
		t.Errorf("A should succeed: %+v", byID[idA])
	}
	if byID[idB].Success || byID[idB].Error != "not_streaming: stream is not running" {
		t.Errorf("B should fail with server error: %+v", byID[idB])
	}
	if byID["missing"].Success || byID["missing"].Error != "camera not found: missing" {
		t.Errorf("missing should fail as not found: %+v", byID["missing"])
	}
}

func TestDispatchResultCardinality(t *testing.T) {
	net := newFakeNetwork()
	m, _ := newTestManager(t, net)
	var ids []string
	for i := 1; i <= 7; i++ {
		c := net.put(fmt.Sprintf("10.0.0.%d", i), 8080, newFakeClient(fmt.Sprintf("Cam%d", i)))
		if i%3 == 0 {
			c.stopErr = errors.New("boom")
		}
		ids = append(ids, mustAdd(t, m, fmt.Sprintf("10.0.0.%d", i), 8080))
	}
	cases := [][]string{
		{},
		ids[:1],
		ids,
		append(append([]string{}, ids[2:5]...), "ghost-1", "ghost-2"),
	}
	for _, targets := range cases {
		results := m.GroupStopStream(context.Background(), targets)
		if len(results) != len(targets) {
			t.Errorf("targets=%v: got %d results", targets, len(results))
		}
		for i, r := range results {
			if r.CameraID != targets[i] {
				t.Errorf("result %d is for %s, want %s", i, r.CameraID, targets[i])
			}
		}
	}
}

func TestDispatchIsBounded(t *testing.T) {
	net := newFakeNetwork()
	m, _ := newTestManager(t, net, WithMaxConcurrent(2))
	var inflight, maxInflight atomic.Int32
	var ids []string
	for i := 1; i <= 6; i++ {
		c := newFakeClient(fmt.Sprintf("Cam%d", i))
		net.put(fmt.Sprintf("10.0.1.%d", i), 8080, c)
		ids = append(ids, mustAdd(t, m, fmt.Sprintf("10.0.1.%d", i), 8080))
		c.delay = 20 * time.Millisecond
		c.inflight = &inflight
		c.maxInflight = &maxInflight
	}

	results := m.GroupStartStream(context.Background(), ids, types.DefaultStreamSettings())
	if len(results) != 6 {
		t.Fatalf("Expected 6 results, got %d", len(results))
	}
	if got := maxInflight.Load(); got > 2 {
		t.Errorf("Expected at most 2 concurrent operations, saw %d", got)
	}
	if m.Dispatcher().Capacity() != 2 {
		t.Errorf("Unexpected capacity %d", m.Dispatcher().Capacity())
	}
}

func TestDispatchPanicIsOmitted(t *testing.T) {
	net := newFakeNetwork()
	net.put("10.0.0.1", 8080, newFakeClient("A"))
	bad := net.put("10.0.0.2", 8080, newFakeClient("B"))
	bad.panicOnStop = true
	m, _ := newTestManager(t, net, WithMaxConcurrent(1))
	idA := mustAdd(t, m, "10.0.0.1", 8080)
	idB := mustAdd(t, m, "10.0.0.2", 8080)

	results := m.GroupStopStream(context.Background(), []string{idA, idB})
	if len(results) != 1 || results[0].CameraID != idA {
		t.Fatalf("Expected only A's result, got %+v", results)
	}
	// the panicking worker must have released its slot
	results = m.GroupStopStream(context.Background(), []string{idA})
	if len(results) != 1 || !results[0].Success {
		t.Errorf("Dispatcher stuck after panic: %+v", results)
	}
}

func TestUnresolvedTargetsSkipSemaphore(t *testing.T) {
	d := NewDispatcher(1)
	if err := d.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	defer d.sem.Release(1)

	done := make(chan []types.GroupCommandResult, 1)
	go func() {
		done <- d.Dispatch(context.Background(), []Target{{ID: "a"}, {ID: "b"}}, func(context.Context, string, DeviceClient) error {
			return nil
		})
	}()
	select {
	case results := <-done:
		if len(results) != 2 || results[0].Success || results[1].Success {
			t.Errorf("Unexpected results: %+v", results)
		}
	case <-time.After(time.Second):
		t.Fatal("unresolved targets waited for a semaphore slot")
	}
}

func TestDispatchHonorsContextWhileWaiting(t *testing.T) {
	d := NewDispatcher(1)
	if err := d.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	defer d.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	results := d.Dispatch(ctx, []Target{{ID: "a", Client: newFakeClient("A")}}, stopStream)
	if len(results) != 1 || results[0].Success {
		t.Fatalf("Expected a failed result, got %+v", results)
	}
}

func TestGroupStartRecordsOnlySuccesses(t *testing.T) {
	net := newFakeNetwork()
	net.put("10.0.0.1", 8080, newFakeClient("A"))
	b := net.put("10.0.0.2", 8080, newFakeClient("B"))
	b.startErr = fmt.Errorf("%w: timeout", camera.ErrRequestFailed)
	m, s := newTestManager(t, net)
	idA := mustAdd(t, m, "10.0.0.1", 8080)
	idB := mustAdd(t, m, "10.0.0.2", 8080)

	req := types.StreamStartRequest{Resolution: "1280x720", Framerate: 60, Bitrate: 8_000_000, Codec: "h264"}
	results := m.GroupStartStream(context.Background(), []string{idA, idB}, req)
	byID := resultsByID(results)
	if !byID[idA].Success || byID[idB].Success {
		t.Fatalf("Unexpected results: %+v", results)
	}
	psA, _ := m.PersistedSettings(idA)
	psB, _ := m.PersistedSettings(idB)
	if psA.Stream == nil || *psA.Stream != req {
		t.Errorf("A should record stream settings: %+v", psA)
	}
	if psB.Stream != nil {
		t.Errorf("B must not record stream settings: %+v", psB)
	}
	persisted, _ := s.LoadDevices()
	for _, p := range persisted {
		if p.ID == idA && p.StreamSettings == nil {
			t.Errorf("A's stream settings not persisted")
		}
	}
}

func TestStartAllUsesPersistedOrDefault(t *testing.T) {
	net := newFakeNetwork()
	a := net.put("10.0.0.1", 8080, newFakeClient("A"))
	b := net.put("10.0.0.2", 8080, newFakeClient("B"))
	m, _ := newTestManager(t, net)
	idA := mustAdd(t, m, "10.0.0.1", 8080)
	mustAdd(t, m, "10.0.0.2", 8080)

	custom := types.StreamStartRequest{Resolution: "1280x720", Framerate: 60, Bitrate: 6_000_000, Codec: "hevc"}
	_ = m.UpdateStreamSettings(idA, custom)

	results := m.StartAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if a.started[0] != custom {
		t.Errorf("A should start with persisted settings, got %+v", a.started[0])
	}
	if b.started[0] != types.DefaultStreamSettings() {
		t.Errorf("B should start with defaults, got %+v", b.started[0])
	}
}

func TestStartAllAndStopAllEmptyRegistry(t *testing.T) {
	m, _ := newTestManager(t, newFakeNetwork())
	if r := m.StartAll(context.Background()); len(r) != 0 {
		t.Errorf("Expected no results, got %+v", r)
	}
	if r := m.StopAll(context.Background()); len(r) != 0 {
		t.Errorf("Expected no results, got %+v", r)
	}
}

func TestStopAll(t *testing.T) {
	net := newFakeNetwork()
	a := net.put("10.0.0.1", 8080, newFakeClient("A"))
	b := net.put("10.0.0.2", 8080, newFakeClient("B"))
	notifier := &recordingNotifier{}
	m, _ := newTestManager(t, net, WithNotifier(notifier))
	mustAdd(t, m, "10.0.0.1", 8080)
	mustAdd(t, m, "10.0.0.2", 8080)

	results := m.StopAll(context.Background())
	if len(results) != 2 || a.stopped != 1 || b.stopped != 1 {
		t.Errorf("Unexpected StopAll outcome: %+v", results)
	}
	kinds := notifier.kinds()
	if kinds[len(kinds)-1] != types.NotifyTypeGroupCommandEnded {
		t.Errorf("Expected group_command_ended notification, got %v", kinds)
	}
}

func TestApplyProfile(t *testing.T) {
	net := newFakeNetwork()
	a := net.put("10.0.0.1", 8080, newFakeClient("A"))
	m, _ := newTestManager(t, net)
	idA := mustAdd(t, m, "10.0.0.1", 8080)

	if _, err := m.ApplyProfile(context.Background(), "Nope", []string{idA}); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	iso := 800
	if err := m.SaveProfile("Night", types.CameraSettingsRequest{Iso: &iso}); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}
	results, err := m.ApplyProfile(context.Background(), "Night", []string{idA, "missing"})
	if err != nil {
		t.Fatalf("ApplyProfile failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if len(a.settings) != 1 || *a.settings[0].Iso != 800 {
		t.Errorf("Profile settings not applied: %+v", a.settings)
	}
	ps, _ := m.PersistedSettings(idA)
	if ps.Camera == nil || *ps.Camera.Iso != 800 {
		t.Errorf("Profile settings not recorded: %+v", ps)
	}
}

func TestProfilesAndAppSettings(t *testing.T) {
	m, _ := newTestManager(t, newFakeNetwork())
	_ = m.SaveProfile("A", types.CameraSettingsRequest{})
	_ = m.SaveProfile("A", types.CameraSettingsRequest{})
	if len(m.Profiles()) != 1 {
		t.Errorf("Expected 1 profile after repeated save, got %d", len(m.Profiles()))
	}
	if err := m.DeleteProfile("B"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	settings := m.AppSettings()
	if settings != types.DefaultAppSettings() {
		t.Errorf("Expected default settings, got %+v", settings)
	}
	settings.DefaultFramerate = 60
	if err := m.SaveAppSettings(settings); err != nil {
		t.Fatalf("SaveAppSettings failed: %v", err)
	}
	if m.AppSettings().DefaultFramerate != 60 {
		t.Errorf("App settings not saved")
	}
}
