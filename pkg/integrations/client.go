package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/pipios/pkg/cache"
	perrors "github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/httputil"
	"github.com/matzehuels/pipios/pkg/observability"
)

// Client provides shared HTTP functionality for registry API clients.
// It handles in-process caching, retry logic, and common request headers.
//
// Concurrent [Client.Cached] calls for the same key share one fetch.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	prefix  string
	ttl     time.Duration
	headers map[string]string
	retry   httputil.Policy
	flight  singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(p httputil.Policy) Option {
	return func(c *Client) { c.retry = p }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient creates a Client with the given cache and default headers.
// Cache keys are namespaced with prefix. Pass nil for backend to disable
// caching and nil for headers if no default headers are needed.
func NewClient(backend cache.Cache, prefix string, ttl time.Duration, headers map[string]string, opts ...Option) *Client {
	if backend == nil {
		backend = cache.NewNullCache()
	}
	c := &Client{
		http:    NewHTTPClient(DefaultTimeout),
		cache:   backend,
		prefix:  prefix,
		ttl:     ttl,
		headers: headers,
		retry:   httputil.DefaultPolicy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cached retrieves a value from cache or executes fetch and caches the result.
// If refresh is true, the cache is bypassed and fetch is always called.
// The fetch function should populate v; on success, v is stored in the cache.
// Transient fetch failures are retried under the client's policy.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	key = c.prefix + key
	if !refresh {
		if data, ok, _ := c.cache.Get(ctx, key); ok {
			if json.Unmarshal(data, v) == nil {
				observability.Cache().OnCacheHit(ctx, c.prefix)
				return nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, c.prefix)
	}

	data, err, _ := c.flight.Do(key, func() (any, error) {
		if err := c.retry.Do(ctx, fetch); err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, perrors.Wrap(perrors.ErrCodeInternal, err, "encode %s", key)
		}
		if c.cache.Set(ctx, key, data, c.ttl) == nil {
			observability.Cache().OnCacheSet(ctx, c.prefix, len(data))
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	// Callers that joined another caller's fetch still need their own copy.
	return json.Unmarshal(data.([]byte), v)
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
// It does not retry; wrap it in [Client.Cached] or a [httputil.Policy].
func (c *Client) Get(ctx context.Context, rawURL string, v any) error {
	body, err := c.doRequest(ctx, rawURL)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return perrors.Wrap(perrors.ErrCodeNetwork, err, "decode %s", rawURL)
	}
	return nil
}

// GetBytes downloads rawURL into memory, retrying transient failures.
func (c *Client) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	var data []byte
	err := c.retry.Do(ctx, func() error {
		body, err := c.doRequest(ctx, rawURL)
		if err != nil {
			return err
		}
		defer body.Close()
		data, err = io.ReadAll(body)
		if err != nil {
			return httputil.Retryable(perrors.Wrap(perrors.ErrCodeNetworkTransient,
				fmt.Errorf("%w: %v", ErrNetwork, err), "read %s", rawURL))
		}
		return nil
	})
	return data, err
}

func (c *Client) doRequest(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "request %s", rawURL)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	host, path := hostPath(req.URL)
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, http.MethodGet, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, http.MethodGet, host, path, err)
		return nil, httputil.Retryable(perrors.Wrap(perrors.ErrCodeNetworkTransient,
			fmt.Errorf("%w: %v", ErrNetwork, err), "GET %s", rawURL))
	}
	hooks.OnResponse(ctx, http.MethodGet, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func hostPath(u *url.URL) (string, string) {
	if u == nil {
		return "", ""
	}
	return u.Host, u.Path
}

// checkStatus maps an HTTP status to the error taxonomy: 404 is a definitive
// NOT_FOUND, 429 and 5xx are retryable NETWORK_TRANSIENT, and any other
// non-200 status is a permanent NETWORK failure.
func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return perrors.Wrap(perrors.ErrCodeNotFound, ErrNotFound, "status %d", code)
	case code == http.StatusTooManyRequests || code >= 500:
		return httputil.Retryable(perrors.Wrap(perrors.ErrCodeNetworkTransient,
			fmt.Errorf("%w: status %d", ErrNetwork, code), "registry unavailable"))
	default:
		return perrors.Wrap(perrors.ErrCodeNetwork, fmt.Errorf("%w: status %d", ErrNetwork, code), "registry rejected request")
	}
}
