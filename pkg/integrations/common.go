package integrations

import (
	"errors"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single registry request or artifact download.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when a project, release or file doesn't exist
	// in the index.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for transport failures and unexpected statuses.
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient returns a client for index requests. A resolution makes many
// small requests to one host, so the transport keeps more idle connections
// per host than the default.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 16
	return &http.Client{Timeout: timeout, Transport: transport}
}
