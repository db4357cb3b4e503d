package boardcast

import (
	"context"
	"fmt"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/moyoez/camfleet/share"
	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

// BrowseOptions selects the advertised service to watch.
type BrowseOptions struct {
	Service string
	Domain  string
	// Window bounds one browse session. The resolver suppresses entries it has already
	// reported, so sessions are restarted to keep live cameras fresh in the TTL cache.
	Window time.Duration
}

// BrowseOptionsFromConfig fills defaults for unset fields.
func BrowseOptionsFromConfig(cfg types.DiscoveryConfig) BrowseOptions {
	opts := BrowseOptions{Service: cfg.ServiceType, Domain: cfg.Domain}
	if opts.Service == "" {
		opts.Service = defaultServiceType
	}
	if opts.Domain == "" {
		opts.Domain = defaultDomain
	}
	opts.Window = defaultBrowseInterval
	if ttl := time.Duration(cfg.TTLSeconds) * time.Second; ttl > 0 && ttl/2 < opts.Window {
		opts.Window = ttl / 2
	}
	return opts
}

// ListenMDNS browses for cameras until ctx is cancelled, feeding share.Discovered.
func ListenMDNS(ctx context.Context, opts BrowseOptions) {
	tool.DefaultLogger.Infof("Starting mDNS browse for %s.%s", opts.Service, opts.Domain)
	for {
		if err := browseOnce(ctx, opts); err != nil {
			tool.DefaultLogger.Warnf("mDNS browse failed: %v", err)
		}
		select {
		case <-ctx.Done():
			tool.DefaultLogger.Info("mDNS browse stopped")
			return
		default:
		}
		// brief pause before the next session so a failing resolver does not spin
		select {
		case <-ctx.Done():
			tool.DefaultLogger.Info("mDNS browse stopped")
			return
		case <-time.After(time.Second):
		}
	}
}

// browseOnce runs a single browse session bounded by opts.Window.
func browseOnce(ctx context.Context, opts BrowseOptions) error {
	var resolverOpts []zeroconf.ClientOption
	if ifaces := tool.UsableInterfaces(); len(ifaces) > 0 {
		resolverOpts = append(resolverOpts, zeroconf.SelectIfaces(ifaces))
	}
	resolver, err := zeroconf.NewResolver(resolverOpts...)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	window := opts.Window
	if window <= 0 {
		window = defaultBrowseInterval
	}
	sessionCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 16)
	if err := resolver.Browse(sessionCtx, opts.Service, opts.Domain, entries); err != nil {
		return fmt.Errorf("failed to browse %s: %w", opts.Service, err)
	}
	for {
		select {
		case <-sessionCtx.Done():
			return nil
		case entry, ok := <-entries:
			if !ok {
				return nil
			}
			handleServiceEntry(entry, opts.Service, opts.Domain)
		}
	}
}

// handleServiceEntry applies one resolver event to the discovery cache.
// TTL 0 is an mDNS goodbye and retracts the alias.
func handleServiceEntry(entry *zeroconf.ServiceEntry, service, domain string) {
	if entry == nil {
		return
	}
	if entry.TTL == 0 {
		alias := AliasFromInstance(entry.Instance, service, domain)
		tool.DefaultLogger.Infof("Camera removed: %s", alias)
		share.RemoveDiscovered(alias)
		return
	}
	device, ok := entryToDiscovered(entry, service, domain)
	if !ok {
		tool.DefaultLogger.Warnf("No IP address found for %s", entry.Instance)
		return
	}
	share.SetDiscovered(device.Alias, device)
}
