package camera

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/moyoez/camfleet/tool"
	"github.com/moyoez/camfleet/types"
)

// Client talks to one camera: HTTP control calls plus the telemetry WebSocket.
type Client struct {
	ip          string
	port        int
	token       string
	baseURL     string
	timeout     time.Duration
	httpClient  *http.Client
	dialer      *websocket.Dialer
	policy      ReconnectPolicy
	readTimeout time.Duration

	mu             sync.Mutex
	running        bool
	stop           chan struct{}
	stopOnce       *sync.Once
	conn           *websocket.Conn
	restart        bool
	restartHandler TelemetryHandler

	// onBackoff observes every reconnect delay; tests only.
	onBackoff func(attempts int, delay time.Duration)

	connected atomic.Bool
	state     atomic.Int32
}

type Option func(*Client)

// WithTimeout sets the per-request timeout (default 5s).
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the HTTP client; its Timeout is left untouched.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithReconnectPolicy(policy ReconnectPolicy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// WithReadTimeout sets how long a telemetry session may stay silent before it counts as dropped (default 5s).
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.readTimeout = timeout
		}
	}
}

// NewClient creates a client for the camera at ip:port. No network I/O happens here.
func NewClient(ip string, port int, token string, opts ...Option) *Client {
	c := &Client{
		ip:          ip,
		port:        port,
		token:       token,
		baseURL:     tool.BuildBaseURL(ip, port),
		timeout:     tool.DefaultTimeout,
		policy:      DefaultReconnectPolicy(),
		readTimeout: DefaultReadTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = tool.NewHTTPClient(c.timeout)
	}
	c.dialer = &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.timeout,
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) GetStatus(ctx context.Context) (*types.StatusResponse, error) {
	var status types.StatusResponse
	if err := c.do(ctx, http.MethodGet, tool.PathStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) GetCapabilities(ctx context.Context) ([]types.Capability, error) {
	var caps []types.Capability
	if err := c.do(ctx, http.MethodGet, tool.PathCapabilities, nil, &caps); err != nil {
		return nil, err
	}
	return caps, nil
}

func (c *Client) StartStream(ctx context.Context, req types.StreamStartRequest) error {
	return c.do(ctx, http.MethodPost, tool.PathStreamStart, req, nil)
}

func (c *Client) StopStream(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, tool.PathStreamStop, struct{}{}, nil)
}

func (c *Client) UpdateSettings(ctx context.Context, req types.CameraSettingsRequest) error {
	return c.do(ctx, http.MethodPost, tool.PathCamera, req, nil)
}

func (c *Client) MeasureWhiteBalance(ctx context.Context) (*types.WhiteBalanceMeasureResponse, error) {
	var resp types.WhiteBalanceMeasureResponse
	if err := c.do(ctx, http.MethodPost, tool.PathWhiteBalance, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do issues one control request. body nil means no request body; out nil discards a 2xx body.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	url := tool.BuildCameraURL(c.baseURL, path)
	req, err := tool.NewHTTPReqWithApplication(http.NewRequestWithContext(ctx, method, url, reader))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrRequestFailed, err)
	}
	tool.SetBearer(req.Header, c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr types.ErrorResponse
		if err := sonic.Unmarshal(data, &apiErr); err != nil || (apiErr.Code == "" && apiErr.Message == "") {
			return fmt.Errorf("%w: unparseable error body (status %d)", ErrDecodeFailed, resp.StatusCode)
		}
		return &ServerError{
			StatusCode: resp.StatusCode,
			Code:       apiErr.Code,
			Message:    apiErr.Message,
		}
	}

	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrDecodeFailed, method, path, err)
	}
	return nil
}
