package share

import (
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/moyoez/camfleet/notify"
	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

const (
	DefaultTTL = 300 * time.Second // set 300 seconds.
)

var (
	discoveredMu sync.Mutex // serializes check-then-set so notifications fire once per change
	Discovered   = ttlworker.NewCache[string, types.DiscoveredDevice](DefaultTTL)
)

// SetDiscoveredTTL recreates the cache with a new lifetime. Call before any producer starts.
func SetDiscoveredTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	discoveredMu.Lock()
	defer discoveredMu.Unlock()
	Discovered = ttlworker.NewCache[string, types.DiscoveredDevice](ttl)
}

// SetDiscovered records an advertised camera keyed by alias and notifies on new or changed records.
func SetDiscovered(alias string, data types.DiscoveredDevice) {
	if alias == "" {
		return
	}
	discoveredMu.Lock()
	existing, exists := getDiscovered(alias)
	isNew := !exists
	isChanged := exists && hasDiscoveredChanged(existing, data)
	Discovered.Set(alias, data)
	discoveredMu.Unlock()
	tool.DefaultLogger.Debugf("Set discovered camera: %s", alias)

	if !isNew && !isChanged {
		return
	}
	eventType, title := types.NotifyTypeDeviceUpdated, "Camera Updated"
	if isNew {
		eventType, title = types.NotifyTypeDeviceDiscovered, "Camera Discovered"
		tool.DefaultLogger.Infof("New camera discovered: %s at %s:%d", data.Alias, data.IP, data.Port)
	} else {
		tool.DefaultLogger.Infof("Camera advertisement updated: %s at %s:%d", data.Alias, data.IP, data.Port)
	}
	notification := &types.Notification{
		Type:    eventType,
		Title:   title,
		Message: fmt.Sprintf("%s at %s:%d", data.Alias, data.IP, data.Port),
		Data: map[string]any{
			"alias":       data.Alias,
			"ip":          data.IP,
			"port":        data.Port,
			"txt_records": data.TxtRecords,
			"source":      data.Source,
			"isNew":       isNew,
		},
	}
	if err := notify.SendNotification(notification); err != nil {
		tool.DefaultLogger.Debugf("Failed to send discovery notification: %v", err)
	}
}

// RemoveDiscovered retracts an advertisement. Unknown aliases are ignored.
func RemoveDiscovered(alias string) {
	discoveredMu.Lock()
	existing, exists := getDiscovered(alias)
	if exists {
		Discovered.Delete(alias)
	}
	discoveredMu.Unlock()
	if !exists {
		return
	}
	tool.DefaultLogger.Infof("Camera advertisement removed: %s", alias)
	notification := &types.Notification{
		Type:    types.NotifyTypeDeviceLost,
		Title:   "Camera Lost",
		Message: fmt.Sprintf("%s at %s:%d", existing.Alias, existing.IP, existing.Port),
		Data: map[string]any{
			"alias": existing.Alias,
			"ip":    existing.IP,
			"port":  existing.Port,
		},
	}
	if err := notify.SendNotification(notification); err != nil {
		tool.DefaultLogger.Debugf("Failed to send discovery notification: %v", err)
	}
}

func hasDiscoveredChanged(a, b types.DiscoveredDevice) bool {
	return a.IP != b.IP ||
		a.Port != b.Port ||
		a.Alias != b.Alias ||
		!maps.Equal(a.TxtRecords, b.TxtRecords)
}

func getDiscovered(alias string) (types.DiscoveredDevice, bool) {
	data := Discovered.Get(alias)
	return data, data.IP != ""
}

func GetDiscovered(alias string) (types.DiscoveredDevice, bool) {
	return getDiscovered(alias)
}

// ListDiscovered returns every live advertisement sorted by alias.
func ListDiscovered() []types.DiscoveredDevice {
	result := make([]types.DiscoveredDevice, 0)
	err := Discovered.Range(func(k string, v types.DiscoveredDevice) error {
		result = append(result, v)
		return nil
	})
	if err != nil {
		return nil
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Alias < result[j].Alias })
	return result
}
