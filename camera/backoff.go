package camera

import (
	"time"

	"github.com/moyoez/camfleet/types"
)

const (
	DefaultReconnectBase = 2 * time.Second
	DefaultReconnectMax  = 30 * time.Second
	DefaultMaxAttempts   = 1000
	maxBackoffExponent   = 5
)

// ReconnectPolicy drives the telemetry reconnection loop.
// MaxAttempts <= 0 retries forever.
type ReconnectPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		BaseDelay:   DefaultReconnectBase,
		MaxDelay:    DefaultReconnectMax,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// ReconnectPolicyFromConfig converts the reconnect section of config.yaml, keeping defaults for unset delays.
func ReconnectPolicyFromConfig(cfg types.ReconnectConfig) ReconnectPolicy {
	p := DefaultReconnectPolicy()
	if cfg.BaseDelayMs > 0 {
		p.BaseDelay = time.Duration(cfg.BaseDelayMs) * time.Millisecond
	}
	if cfg.MaxDelayMs > 0 {
		p.MaxDelay = time.Duration(cfg.MaxDelayMs) * time.Millisecond
	}
	p.MaxAttempts = cfg.MaxAttempts
	return p
}

// BackoffDelay returns min(base * 2^min(attempts, 5), max).
func BackoffDelay(base, max time.Duration, attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > maxBackoffExponent {
		attempts = maxBackoffExponent
	}
	delay := base * time.Duration(1<<attempts)
	if delay > max {
		return max
	}
	return delay
}

func (p ReconnectPolicy) delay(attempts int) time.Duration {
	return BackoffDelay(p.BaseDelay, p.MaxDelay, attempts)
}

func (p ReconnectPolicy) exhausted(attempts int) bool {
	return p.MaxAttempts > 0 && attempts >= p.MaxAttempts
}
