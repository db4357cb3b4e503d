package boardcast

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

const (
	defaultServiceType = "_avolocam._tcp"
	defaultDomain      = "local."
	defaultSweepPort   = 8080
	// scanNowConcurrency is the concurrency cap for scan-now (no rate limit; high concurrency for speed)
	scanNowConcurrency = 256
	// autoSweepConcurrency limits concurrent check goroutines for the periodic sweep (16~32)
	autoSweepConcurrency = 24
	// autoSweepRatePPS is the ICMP echo rate limit (packets per second) for the periodic sweep; /24 ~ 6~12s
	autoSweepRatePPS = 30
	// icmpPingTimeout is the timeout for ICMP echo (host reachability before the HTTP status check)
	icmpPingTimeout       = 200 * time.Millisecond
	defaultSweepInterval  = 30 * time.Second
	defaultBrowseInterval = 60 * time.Second
)

const (
	SourceMDNS  = "mdns"
	SourceSweep = "sweep"
)

var (
	// networkIPsCache caches generated network IPs to avoid repeated generation
	networkIPsCacheMu  sync.RWMutex
	networkIPsCache    []string
	networkIPsCacheKey string // stores interface addresses hash to detect changes

	// sweepControl controls the periodic sweep loop
	sweepControlMu sync.Mutex
	sweepRestartCh chan struct{}
	sweepRunning   bool

	// scanPauseCount is an atomic reference counter for pausing the sweep during batch operations.
	// When > 0, the sweep loop skips its ticks.
	scanPauseCount atomic.Int32

	// hostReachable is the ICMP gate in front of the HTTP status check.
	hostReachable = func(ip string) bool {
		return tool.QuickICMPPing(ip, icmpPingTimeout)
	}
)

// SweepOptions controls one or more subnet sweeps.
// RatePPS=0 and Concurrency=0 means unlimited (scan-now style).
type SweepOptions struct {
	Port        int
	Interval    time.Duration
	RatePPS     int
	Concurrency int
}

// SweepOptionsFromConfig builds the periodic sweep options, filling defaults for unset fields.
func SweepOptionsFromConfig(cfg types.DiscoveryConfig) SweepOptions {
	opts := SweepOptions{
		Port:        cfg.SweepPort,
		Interval:    time.Duration(cfg.SweepIntervalSec) * time.Second,
		RatePPS:     cfg.SweepRatePPS,
		Concurrency: cfg.SweepConcurrency,
	}
	if opts.Port <= 0 {
		opts.Port = defaultSweepPort
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultSweepInterval
	}
	if opts.RatePPS <= 0 {
		opts.RatePPS = autoSweepRatePPS
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = autoSweepConcurrency
	}
	return opts
}

// PauseScan increments the pause reference counter. While paused, the sweep loop skips its ticks.
func PauseScan() {
	n := scanPauseCount.Add(1)
	tool.DefaultLogger.Debugf("Scan paused (holders: %d)", n)
}

// ResumeScan decrements the pause reference counter. Scanning resumes when counter reaches 0.
func ResumeScan() {
	n := scanPauseCount.Add(-1)
	tool.DefaultLogger.Debugf("Scan resumed (holders: %d)", n)
}

// IsScanPaused reports whether some caller asked the sweep to hold off.
func IsScanPaused() bool {
	return scanPauseCount.Load() > 0
}

// getCachedNetworkIPs returns cached network IPs or generates new ones if the local networks changed.
func getCachedNetworkIPs() ([]string, error) {
	nets, currentKey, err := tool.LocalIPv4Networks()
	if err != nil {
		return nil, err
	}

	networkIPsCacheMu.RLock()
	if networkIPsCacheKey == currentKey && len(networkIPsCache) > 0 {
		result := make([]string, len(networkIPsCache))
		copy(result, networkIPsCache)
		networkIPsCacheMu.RUnlock()
		return result, nil
	}
	networkIPsCacheMu.RUnlock()

	targets := collectHosts(nets)

	networkIPsCacheMu.Lock()
	networkIPsCache = targets
	networkIPsCacheKey = currentKey
	networkIPsCacheMu.Unlock()

	result := make([]string, len(targets))
	copy(result, targets)
	return result, nil
}

// collectHosts expands networks into host addresses, dropping duplicates from overlapping interfaces.
func collectHosts(nets []*net.IPNet) []string {
	seen := make(map[string]struct{})
	var targets []string
	for _, ipnet := range nets {
		for _, ip := range tool.SubnetHosts(ipnet) {
			if _, ok := seen[ip]; ok {
				continue
			}
			seen[ip] = struct{}{}
			targets = append(targets, ip)
		}
	}
	return targets
}

// excludeSelf removes this host's own addresses from a target list.
func excludeSelf(targets []string, selfIPs map[string]struct{}) []string {
	filtered := targets[:0]
	for _, ip := range targets {
		if _, isSelf := selfIPs[ip]; isSelf {
			continue
		}
		filtered = append(filtered, ip)
	}
	return filtered
}
