package fleet

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

// GroupStartStream starts req on every id. Successful devices record req as last-applied.
func (m *Manager) GroupStartStream(ctx context.Context, ids []string, req types.StreamStartRequest) []types.GroupCommandResult {
	var changed atomic.Bool
	results := m.dispatcher.Dispatch(ctx, m.resolve(ids), func(ctx context.Context, id string, client DeviceClient) error {
		if err := client.StartStream(ctx, req); err != nil {
			return err
		}
		if m.recordStream(id, client, req) {
			changed.Store(true)
		}
		return nil
	})
	if changed.Load() {
		m.persist()
	}
	m.groupEnded("start_stream", results)
	return results
}

func (m *Manager) GroupStopStream(ctx context.Context, ids []string) []types.GroupCommandResult {
	results := m.dispatcher.Dispatch(ctx, m.resolve(ids), stopStream)
	m.groupEnded("stop_stream", results)
	return results
}

// GroupUpdateSettings applies settings on every id. Successful devices record settings as last-applied.
func (m *Manager) GroupUpdateSettings(ctx context.Context, ids []string, settings types.CameraSettingsRequest) []types.GroupCommandResult {
	results := m.updateSettings(ctx, m.resolve(ids), settings)
	m.groupEnded("update_settings", results)
	return results
}

func (m *Manager) updateSettings(ctx context.Context, targets []Target, settings types.CameraSettingsRequest) []types.GroupCommandResult {
	var changed atomic.Bool
	results := m.dispatcher.Dispatch(ctx, targets, func(ctx context.Context, id string, client DeviceClient) error {
		if err := client.UpdateSettings(ctx, settings); err != nil {
			return err
		}
		if m.recordCamera(id, client, settings) {
			changed.Store(true)
		}
		return nil
	})
	if changed.Load() {
		m.persist()
	}
	return results
}

// ApplyProfile applies a stored profile to ids. An unknown profile returns types.ErrNotFound.
func (m *Manager) ApplyProfile(ctx context.Context, name string, ids []string) ([]types.GroupCommandResult, error) {
	profile, ok := m.store.Profile(name)
	if !ok {
		return nil, fmt.Errorf("profile %q: %w", name, types.ErrNotFound)
	}
	tool.DefaultLogger.Infof("Applying profile %q to %d cameras", name, len(ids))
	results := m.updateSettings(ctx, m.resolve(ids), profile.Settings)
	m.groupEnded("apply_profile", results)
	return results, nil
}

// StartAll starts every registered camera with its last-applied stream settings,
// falling back to the app default stream settings.
func (m *Manager) StartAll(ctx context.Context) []types.GroupCommandResult {
	targets := m.allTargets()
	if len(targets) == 0 {
		return []types.GroupCommandResult{}
	}
	fallback := m.store.AppSettings().StreamSettings()

	m.mu.RLock()
	plan := make(map[string]types.StreamStartRequest, len(targets))
	for _, t := range targets {
		req := fallback
		if e, ok := m.devices[t.ID]; ok && e.settings.Stream != nil {
			req = *e.settings.Stream
		}
		plan[t.ID] = req
	}
	m.mu.RUnlock()

	results := m.dispatcher.Dispatch(ctx, targets, func(ctx context.Context, id string, client DeviceClient) error {
		return client.StartStream(ctx, plan[id])
	})
	m.groupEnded("start_all", results)
	return results
}

func (m *Manager) StopAll(ctx context.Context) []types.GroupCommandResult {
	targets := m.allTargets()
	if len(targets) == 0 {
		return []types.GroupCommandResult{}
	}
	results := m.dispatcher.Dispatch(ctx, targets, stopStream)
	m.groupEnded("stop_all", results)
	return results
}

func stopStream(ctx context.Context, _ string, client DeviceClient) error {
	return client.StopStream(ctx)
}

func (m *Manager) groupEnded(command string, results []types.GroupCommandResult) {
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	tool.DefaultLogger.Infof("Group %s finished: %d/%d succeeded", command, succeeded, len(results))
	m.notifier.Notify(&types.Notification{
		ID:      tool.GenerateRandomUUID(),
		Type:    types.NotifyTypeGroupCommandEnded,
		Title:   "Group Command Finished",
		Message: fmt.Sprintf("%s: %d/%d succeeded", command, succeeded, len(results)),
		Data: map[string]any{
			"command":   command,
			"total":     len(results),
			"succeeded": succeeded,
			"results":   results,
		},
	})
}
