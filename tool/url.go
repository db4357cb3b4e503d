package tool

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Camera control API paths.
const (
	PathStatus          = "/api/v1/status"
	PathCapabilities    = "/api/v1/capabilities"
	PathStreamStart     = "/api/v1/stream/start"
	PathStreamStop      = "/api/v1/stream/stop"
	PathCamera          = "/api/v1/camera"
	PathWhiteBalance    = "/api/v1/camera/wb/measure"
	PathTelemetrySocket = "/ws"
)

// BuildBaseURL builds http://host:port, bracketing IPv6 literals.
func BuildBaseURL(ip string, port int) string {
	return "http://" + net.JoinHostPort(ip, strconv.Itoa(port))
}

// BuildCameraURL joins a control API path onto a base URL.
func BuildCameraURL(baseURL, path string) string {
	return strings.TrimSuffix(baseURL, "/") + path
}

// BuildWebSocketURL turns a base URL into the telemetry endpoint ws://host:port/ws.
func BuildWebSocketURL(baseURL string) (string, error) {
	switch {
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(strings.TrimSuffix(baseURL, "/"), "http://") + PathTelemetrySocket, nil
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(strings.TrimSuffix(baseURL, "/"), "https://") + PathTelemetrySocket, nil
	default:
		return "", fmt.Errorf("unsupported base URL scheme: %s", baseURL)
	}
}
