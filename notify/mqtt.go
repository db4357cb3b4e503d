package notify

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

const (
	mqttConnectTimeout = 5 * time.Second
	mqttPublishTimeout = 2 * time.Second
	mqttMaxQoS         = 2
)

var (
	ErrMQTTConnect      = errors.New("mqtt connection failed")
	ErrMQTTPublish      = errors.New("mqtt publish failed")
	ErrMQTTNotConnected = errors.New("mqtt not connected")
)

// MQTTPublisher publishes telemetry frames to <prefix>/<device id>/telemetry.
type MQTTPublisher struct {
	client pahomqtt.Client
	prefix string
	qos    byte
}

// NewMQTTPublisher connects to cfg.Broker. The paho client reconnects on its own after the first connect.
func NewMQTTPublisher(cfg types.MQTTConfig) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("%w: broker is required", ErrMQTTConnect)
	}
	if cfg.QoS > mqttMaxQoS {
		return nil, fmt.Errorf("%w: invalid qos %d", ErrMQTTConnect, cfg.QoS)
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "camfleet"
	}
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID + "-" + tool.GenerateShortID()).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout).
		SetCleanSession(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		tool.DefaultLogger.Infof("Connected to MQTT broker %s", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		tool.DefaultLogger.Warnf("Lost MQTT connection to %s: %v", cfg.Broker, err)
	})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrMQTTConnect, mqttConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMQTTConnect, err)
	}

	prefix := strings.Trim(cfg.TopicPrefix, "/")
	if prefix == "" {
		prefix = "camfleet"
	}
	return &MQTTPublisher{client: client, prefix: prefix, qos: cfg.QoS}, nil
}

// TelemetryTopic builds <prefix>/<device id>/telemetry.
func TelemetryTopic(prefix, deviceID string) string {
	return strings.Trim(prefix, "/") + "/" + deviceID + "/telemetry"
}

// PublishTelemetry hands the frame to paho and returns without waiting for the broker.
// Delivery failures are logged once the token settles.
func (p *MQTTPublisher) PublishTelemetry(deviceID string, frame types.TelemetryMessage) error {
	if !p.client.IsConnectionOpen() {
		return ErrMQTTNotConnected
	}
	payload, err := sonic.Marshal(frame)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMQTTPublish, err)
	}
	topic := TelemetryTopic(p.prefix, deviceID)
	go awaitPublish(topic, p.client.Publish(topic, p.qos, false, payload))
	return nil
}

func awaitPublish(topic string, token pahomqtt.Token) {
	if !token.WaitTimeout(mqttPublishTimeout) {
		tool.DefaultLogger.Warnf("MQTT publish to %s timed out after %v", topic, mqttPublishTimeout)
		return
	}
	if err := token.Error(); err != nil {
		tool.DefaultLogger.Warnf("MQTT publish to %s failed: %v", topic, err)
	}
}

// Close disconnects, allowing 250ms for in-flight messages.
func (p *MQTTPublisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
