package boardcast

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"

	"github.com/moyoez/camfleet/share"
	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

// checkHost performs an ICMP echo (host reachability), then GET /api/v1/status, and stores the camera via share.SetDiscovered.
// Returns true if a camera was discovered and stored.
func checkHost(ctx context.Context, targetIP string, port int, httpClient *http.Client) bool {
	if !hostReachable(targetIP) {
		return false
	}
	urlStr := tool.BuildCameraURL(tool.BuildBaseURL(targetIP, port), tool.PathStatus)
	req, err := tool.NewHTTPReqWithApplication(http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil))
	if err != nil {
		tool.DefaultLogger.Debugf("checkHost: failed to create request for %s: %v", urlStr, err)
		return false
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
		}
	}()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return false
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false
	}
	var status types.StatusResponse
	if err := sonic.Unmarshal(body, &status); err != nil {
		return false
	}
	if status.Alias == "" {
		return false
	}
	tool.DefaultLogger.Infof("checkHost: discovered camera at %s: %s", urlStr, status.Alias)
	share.SetDiscovered(status.Alias, types.DiscoveredDevice{
		Alias: status.Alias,
		IP:    targetIP,
		Port:  port,
		TxtRecords: map[string]string{
			"ndi_state": string(status.NdiState),
		},
		Source: SourceSweep,
	})
	return true
}

// ScanOnce performs a single sweep of the local IPv4 networks.
func ScanOnce(ctx context.Context, opts SweepOptions) error {
	targets, err := getCachedNetworkIPs()
	if err != nil {
		return fmt.Errorf("failed to get network IPs: %v", err)
	}
	if len(targets) == 0 {
		return fmt.Errorf("no usable local IPv4 addresses found")
	}
	targets = excludeSelf(targets, tool.GetLocalIPv4Set())
	return sweepTargets(ctx, targets, opts, tool.GetScanHttpClient())
}

func sweepTargets(ctx context.Context, targets []string, opts SweepOptions, httpClient *http.Client) error {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = scanNowConcurrency
	}
	port := opts.Port
	if port <= 0 {
		port = defaultSweepPort
	}
	tool.DefaultLogger.Debugf("ScanOnce: scanning %d IP addresses (concurrency=%d, ratePPS=%d)", len(targets), concurrency, opts.RatePPS)

	var limiter *rate.Limiter
	if opts.RatePPS > 0 {
		burst := max(opts.RatePPS+10, 20)
		limiter = rate.NewLimiter(rate.Limit(opts.RatePPS), burst)
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for _, ip := range targets {
		wg.Add(1)
		go func(targetIP string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
			}
			checkHost(ctx, targetIP, port, httpClient)
		}(ip)
	}
	wg.Wait()
	return ctx.Err()
}

// ListenSweep runs the periodic sweep until ctx is cancelled.
// skipInitialScan: if true (e.g. after scan-now), the first sweep waits one interval.
func ListenSweep(ctx context.Context, opts SweepOptions, skipInitialScan bool) {
	sweepControlMu.Lock()
	if sweepRunning {
		sweepControlMu.Unlock()
		tool.DefaultLogger.Debug("Sweep already running")
		return
	}
	sweepRunning = true
	if sweepRestartCh == nil {
		sweepRestartCh = make(chan struct{}, 1)
	}
	restartCh := sweepRestartCh
	sweepControlMu.Unlock()

	defer func() {
		sweepControlMu.Lock()
		sweepRunning = false
		sweepControlMu.Unlock()
	}()

	interval := opts.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	tool.DefaultLogger.Infof("Starting legacy subnet sweep on port %d (every %v)", opts.Port, interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	scan := func() {
		if err := ScanOnce(ctx, opts); err != nil && ctx.Err() == nil {
			tool.DefaultLogger.Warnf("ListenSweep: scan failed: %v", err)
		}
	}
	if !skipInitialScan {
		scan()
	}
	for {
		select {
		case <-ctx.Done():
			tool.DefaultLogger.Info("Subnet sweep stopped")
			return
		case <-restartCh:
			ticker.Reset(interval)
			scan()
		case <-ticker.C:
			if IsScanPaused() {
				tool.DefaultLogger.Debug("Sweep: paused, skipping this tick")
				continue
			}
			scan()
		}
	}
}

// IsSweepRunning returns whether the periodic sweep loop is active.
func IsSweepRunning() bool {
	sweepControlMu.Lock()
	defer sweepControlMu.Unlock()
	return sweepRunning
}

// ScanNow triggers an immediate sweep. A running loop is signalled and restarts its ticker;
// otherwise a one-off unlimited sweep runs on the caller's goroutine.
func ScanNow(ctx context.Context, port int) error {
	sweepControlMu.Lock()
	running := sweepRunning
	if sweepRestartCh == nil {
		sweepRestartCh = make(chan struct{}, 1)
	}
	restartCh := sweepRestartCh
	sweepControlMu.Unlock()

	if running {
		select {
		case restartCh <- struct{}{}:
			tool.DefaultLogger.Info("Sweep restart signal sent")
		default:
			tool.DefaultLogger.Debug("Sweep restart channel full, signal already pending")
		}
		return nil
	}
	tool.DefaultLogger.Info("Performing manual sweep...")
	return ScanOnce(ctx, SweepOptions{Port: port})
}
