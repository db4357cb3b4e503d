package tool

import (
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// QuickICMPPing sends a single unprivileged echo request and reports whether a reply came back.
func QuickICMPPing(ip string, timeout time.Duration) bool {
	pinger, err := probing.NewPinger(ip)
	if err != nil {
		DefaultLogger.Debugf("QuickICMPPing: failed to create pinger for %s: %v", ip, err)
		return false
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(false)
	if err := pinger.Run(); err != nil {
		DefaultLogger.Debugf("QuickICMPPing: %s: %v", ip, err)
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}
