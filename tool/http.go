package tool

import (
	"net"
	"net/http"
	"time"
)

var (
	DefaultTimeout = 5 * time.Second
	// ScanHttpClient is shared by the subnet sweep; it uses a short timeout since most hosts are not cameras.
	ScanHttpClient *http.Client
)

func init() {
	ScanHttpClient = NewHTTPClient(2 * time.Second)
}

// NewHTTPClient creates the HTTP client used to talk to cameras.
// timeout bounds the whole request including reading the body; <= 0 uses DefaultTimeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		DisableKeepAlives:   false,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

func GetScanHttpClient() *http.Client {
	return ScanHttpClient
}

// SetBearer attaches "Authorization: Bearer <token>" when the token is non-empty.
func SetBearer(header http.Header, token string) {
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
}

// NewHTTPReqWithApplication sets JSON content negotiation headers on a freshly built request.
func NewHTTPReqWithApplication(req *http.Request, err error) (*http.Request, error) {
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
