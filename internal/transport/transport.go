// Package transport holds the HTTP plumbing shared by the remote clients:
// the Doer abstraction and the TransportError kind.
package transport

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is the default User-Agent header
	DefaultUserAgent = "prostore-installer/1.0"
)

// ErrTransport matches every *Error via errors.Is.
var ErrTransport = errors.New("transport error")

// Doer defines the interface for HTTP operations
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Error represents a network or HTTP failure talking to a remote dependency.
// StatusCode is 0 when no response was received.
type Error struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	case !IsSuccess(e.StatusCode) && e.Err == nil:
		return fmt.Sprintf("%s %s: unexpected status %d", e.Op, e.URL, e.StatusCode)
	case !IsSuccess(e.StatusCode):
		return fmt.Sprintf("%s %s: unexpected status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrTransport
}

// NewHTTPClient returns an http.Client with the given timeout, or
// DefaultTimeout when timeout is zero.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// IsSuccess reports whether code is a 2xx status.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}
