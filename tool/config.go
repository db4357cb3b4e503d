package tool

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moyoez/camfleet/types"
)

var (
	ConfigPath    = "config.yaml" // be aware that it can be changed, default to ./config.yaml
	CurrentConfig types.AppConfig
	configMu      sync.RWMutex
)

func DefaultConfig() types.AppConfig {
	return types.AppConfig{
		ListenPort:              53380,
		DataDir:                 defaultDataDir(),
		RequestTimeoutMs:        5000,
		MaxConcurrentOperations: 10,
		Reconnect: types.ReconnectConfig{
			BaseDelayMs: 2000,
			MaxDelayMs:  30000,
			MaxAttempts: 1000,
		},
		Persistence: types.PersistConfig{
			Settings: true,
			Profiles: true,
		},
		Discovery: types.DiscoveryConfig{
			MDNS:             true,
			ServiceType:      "_avolocam._tcp",
			Domain:           "local.",
			Sweep:            false,
			SweepPort:        8080,
			SweepIntervalSec: 30,
			SweepRatePPS:     30,
			SweepConcurrency: 24,
			TTLSeconds:       300,
		},
		NotifyWS: true,
		MQTT: types.MQTTConfig{
			ClientID:    "camfleet",
			TopicPrefix: "camfleet",
		},
	}
}

// defaultDataDir resolves <user config dir>/camfleet, falling back to ./data.
func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "data"
	}
	return filepath.Join(dir, "camfleet")
}

// LoadConfig reads config.yaml, creating it with defaults when missing.
// Fields absent from the file keep their default values.
func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := DefaultConfig()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if writeErr := writeConfig(path, cfg); writeErr != nil {
				return cfg, fmt.Errorf("config file not found, and failed to generate default config: %v", writeErr)
			}
			DefaultLogger.Infof("Created new config file at %s", path)
			setCurrentConfig(cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %v", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return cfg, err
	}

	setCurrentConfig(cfg)
	return cfg, nil
}

// ValidateConfig rejects values the controller cannot run with.
func ValidateConfig(cfg types.AppConfig) error {
	if cfg.ListenPort < 1 || cfg.ListenPort > 65535 {
		return fmt.Errorf("invalid listenPort: %d", cfg.ListenPort)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("dataDir is required")
	}
	if cfg.MaxConcurrentOperations < 1 {
		return fmt.Errorf("maxConcurrentOperations must be > 0, got %d", cfg.MaxConcurrentOperations)
	}
	if cfg.Reconnect.BaseDelayMs <= 0 || cfg.Reconnect.MaxDelayMs < cfg.Reconnect.BaseDelayMs {
		return fmt.Errorf("invalid reconnect delays: base=%dms max=%dms", cfg.Reconnect.BaseDelayMs, cfg.Reconnect.MaxDelayMs)
	}
	return nil
}

// ApplyFlags merges CLI overrides into the loaded config.
func ApplyFlags(cfg *types.AppConfig, flags types.Config) {
	if flags.UseDataDir != "" {
		cfg.DataDir = flags.UseDataDir
	}
	if flags.UsePort > 0 {
		cfg.ListenPort = flags.UsePort
	}
	if flags.UseMaxAttempts > 0 {
		cfg.Reconnect.MaxAttempts = flags.UseMaxAttempts
	}
	if flags.UseLegacyMode {
		cfg.Discovery.Sweep = true
	}
	if flags.SkipDiscovery {
		cfg.Discovery.MDNS = false
		cfg.Discovery.Sweep = false
	}
	if flags.SkipNotify {
		cfg.NotifyWS = false
	}
	if flags.UseMQTTBroker != "" {
		cfg.MQTT.Broker = flags.UseMQTTBroker
	}
	setCurrentConfig(*cfg)
}

func writeConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func setCurrentConfig(cfg types.AppConfig) {
	configMu.Lock()
	defer configMu.Unlock()
	CurrentConfig = cfg
}

func GetCurrentConfig() types.AppConfig {
	configMu.RLock()
	defer configMu.RUnlock()
	return CurrentConfig
}

// RequestTimeout returns the per-request HTTP timeout of the config.
func RequestTimeout(cfg types.AppConfig) time.Duration {
	if cfg.RequestTimeoutMs <= 0 {
		return DefaultTimeout
	}
	return time.Duration(cfg.RequestTimeoutMs) * time.Millisecond
}
