package tool

import (
	"flag"

	"github.com/moyoez/camfleet/types"
)

// SetFlags parses CLI flags and returns the override config.
func SetFlags() types.Config {
	var cfg types.Config
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flag.StringVar(&cfg.UseDataDir, "useDataDir", "", "override the directory holding cameras.json, profiles.json and settings.json")
	flag.IntVar(&cfg.UsePort, "usePort", 0, "override control API listen port")
	flag.IntVar(&cfg.UseMaxAttempts, "useMaxAttempts", 0, "override telemetry reconnect attempt ceiling")
	flag.BoolVar(&cfg.UseLegacyMode, "useLegacyMode", false, "also discover cameras by sweeping local subnets (ICMP + HTTP status check)")
	flag.BoolVar(&cfg.SkipDiscovery, "skipDiscovery", false, "disable camera discovery")
	flag.BoolVar(&cfg.SkipNotify, "skipNotify", false, "disable the notify WebSocket")
	flag.StringVar(&cfg.UseMQTTBroker, "useMQTTBroker", "", "publish telemetry to this MQTT broker (e.g. tcp://127.0.0.1:1883)")
	flag.Parse()
	return cfg
}
