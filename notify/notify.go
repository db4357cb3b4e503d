// Package notify fans registry events and telemetry out to local subscribers.
package notify

import (
	"fmt"
	"sync"

	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

// NotifyHub broadcasts notifications to WebSocket subscribers.
type NotifyHub interface {
	Broadcast(notification *types.Notification)
}

// TelemetryPublisher forwards telemetry frames to an external sink.
type TelemetryPublisher interface {
	PublishTelemetry(deviceID string, frame types.TelemetryMessage) error
}

var (
	UseNotify = true

	optMu           sync.RWMutex
	hub             NotifyHub
	notifyWSEnabled bool
	publisher       TelemetryPublisher
)

// SetUseNotify sets whether to use notify
func SetUseNotify(use bool) {
	optMu.Lock()
	defer optMu.Unlock()
	UseNotify = use
}

// SetNotifyHub installs the WebSocket hub. A nil hub disables WebSocket delivery.
func SetNotifyHub(h NotifyHub) {
	optMu.Lock()
	defer optMu.Unlock()
	hub = h
	notifyWSEnabled = h != nil
}

func NotifyWSEnabled() bool {
	optMu.RLock()
	defer optMu.RUnlock()
	return notifyWSEnabled
}

// SetTelemetryPublisher installs the external telemetry sink (MQTT). nil removes it.
func SetTelemetryPublisher(p TelemetryPublisher) {
	optMu.Lock()
	defer optMu.Unlock()
	publisher = p
}

func current() (bool, NotifyHub, TelemetryPublisher) {
	optMu.RLock()
	defer optMu.RUnlock()
	return UseNotify, hub, publisher
}

// SendNotification broadcasts a notification, assigning an id when it has none.
func SendNotification(notification *types.Notification) error {
	if notification == nil {
		return fmt.Errorf("missing notification")
	}
	use, h, _ := current()
	if !use {
		return nil
	}
	if notification.ID == "" {
		notification.ID = tool.GenerateRandomUUID()
	}
	if h == nil {
		return nil
	}
	tool.DefaultLogger.Debugf("Broadcasting notification %s (%s)", notification.Type, notification.ID)
	h.Broadcast(notification)
	return nil
}

// SendTelemetry wraps a frame as a telemetry notification and forwards it to the hub and the publisher.
func SendTelemetry(deviceID string, frame types.TelemetryMessage) error {
	use, h, p := current()
	if !use {
		return nil
	}
	if h != nil {
		h.Broadcast(&types.Notification{
			Type: types.NotifyTypeTelemetry,
			Data: map[string]any{
				"camera_id": deviceID,
				"telemetry": frame,
			},
		})
	}
	if p != nil {
		if err := p.PublishTelemetry(deviceID, frame); err != nil {
			return fmt.Errorf("failed to publish telemetry for %s: %w", deviceID, err)
		}
	}
	return nil
}

// Notifier adapts the package-level senders to the fleet manager.
type Notifier struct{}

func (Notifier) Telemetry(deviceID string, frame types.TelemetryMessage) {
	if err := SendTelemetry(deviceID, frame); err != nil {
		tool.DefaultLogger.Debugf("Failed to send telemetry: %v", err)
	}
}

func (Notifier) Notify(notification *types.Notification) {
	if err := SendNotification(notification); err != nil {
		tool.DefaultLogger.Debugf("Failed to send notification: %v", err)
	}
}
