package types

// AppConfig represents the controller configuration loaded from config.yaml
type AppConfig struct {
	ListenPort              int             `yaml:"listenPort"`
	DataDir                 string          `yaml:"dataDir"`
	RequestTimeoutMs        int             `yaml:"requestTimeoutMs"`
	MaxConcurrentOperations int             `yaml:"maxConcurrentOperations"`
	Reconnect               ReconnectConfig `yaml:"reconnect"`
	Persistence             PersistConfig   `yaml:"persistence"`
	Discovery               DiscoveryConfig `yaml:"discovery"`
	NotifyWS                bool            `yaml:"notifyWS"`
	MQTT                    MQTTConfig      `yaml:"mqtt"`
}

// ReconnectConfig is the telemetry WebSocket reconnection policy.
// MaxAttempts <= 0 retries forever.
type ReconnectConfig struct {
	BaseDelayMs int `yaml:"baseDelayMs"`
	MaxDelayMs  int `yaml:"maxDelayMs"`
	MaxAttempts int `yaml:"maxAttempts"`
}

// PersistConfig toggles the optional JSON stores. The device registry is always persisted.
type PersistConfig struct {
	Settings bool `yaml:"settings"`
	Profiles bool `yaml:"profiles"`
}

// DiscoveryConfig controls the discovery producers feeding share.Discovered.
type DiscoveryConfig struct {
	MDNS             bool   `yaml:"mdns"`
	ServiceType      string `yaml:"serviceType"`
	Domain           string `yaml:"domain"`
	Sweep            bool   `yaml:"sweep"` // legacy mode: ICMP + HTTP status check of local /24s
	SweepPort        int    `yaml:"sweepPort"`
	SweepIntervalSec int    `yaml:"sweepIntervalSec"`
	SweepRatePPS     int    `yaml:"sweepRatePPS"`
	SweepConcurrency int    `yaml:"sweepConcurrency"`
	TTLSeconds       int    `yaml:"ttlSeconds"`
}

// MQTTConfig configures the optional telemetry sink. Empty Broker disables it.
type MQTTConfig struct {
	Broker      string `yaml:"broker"` // e.g. tcp://127.0.0.1:1883
	ClientID    string `yaml:"clientID"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topicPrefix"`
	QoS         byte   `yaml:"qos"`
}

// Config holds runtime overrides from CLI flags
type Config struct {
	Log            string
	UseConfigPath  string
	UseDataDir     string
	UsePort        int
	UseMaxAttempts int  // overrides reconnect.maxAttempts when > 0
	UseLegacyMode  bool // enable subnet sweep discovery
	SkipDiscovery  bool // disable every discovery producer
	SkipNotify     bool // disable the notify WebSocket
	UseMQTTBroker  string
}
