package models

import (
	"sync"

	"github.com/moyoez/camfleet/api/notifyhub"
	"github.com/moyoez/camfleet/fleet"
)

var (
	managerMu sync.RWMutex
	manager   *fleet.Manager

	notifyHubMu sync.RWMutex
	notifyHub   *notifyhub.Hub

	sweepPortMu sync.RWMutex
	sweepPort   int
)

// SetManager sets the fleet manager every controller operates on.
func SetManager(m *fleet.Manager) {
	managerMu.Lock()
	defer managerMu.Unlock()
	manager = m
}

func GetManager() *fleet.Manager {
	managerMu.RLock()
	defer managerMu.RUnlock()
	return manager
}

// SetNotifyHub sets the hub served on /notify-ws.
func SetNotifyHub(h *notifyhub.Hub) {
	notifyHubMu.Lock()
	defer notifyHubMu.Unlock()
	notifyHub = h
}

func GetNotifyHub() *notifyhub.Hub {
	notifyHubMu.RLock()
	defer notifyHubMu.RUnlock()
	return notifyHub
}

// SetSweepPort sets the camera port checked by a manual scan.
func SetSweepPort(port int) {
	sweepPortMu.Lock()
	defer sweepPortMu.Unlock()
	sweepPort = port
}

func GetSweepPort() int {
	sweepPortMu.RLock()
	defer sweepPortMu.RUnlock()
	return sweepPort
}
