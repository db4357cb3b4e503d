package camera

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrConnectFailed means the camera could not be reached at all.
	ErrConnectFailed = errors.New("camera connection failed")
	// ErrRequestFailed covers transport failures after connecting, including timeouts.
	ErrRequestFailed = errors.New("camera request failed")
	// ErrDecodeFailed means a response body could not be decoded.
	ErrDecodeFailed = errors.New("camera response decode failed")
)

// ServerError is a structured {code, message} error returned by a camera with a non-2xx status.
type ServerError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// classifyTransportError maps an http.Client error onto the taxonomy.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	return fmt.Errorf("%w: %v", ErrRequestFailed, err)
}
