package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/pipios/pkg/cache"
	perrors "github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/httputil"
)

var fastRetry = httputil.Policy{Attempts: 3, Delay: time.Millisecond}

func testClient(server *httptest.Server, c cache.Cache) *Client {
	return NewClient(c, "test:", time.Hour, nil, WithHTTPClient(server.Client()), WithRetry(fastRetry))
}

func TestNewClient(t *testing.T) {
	c := cache.NewMemoryCache()
	headers := map[string]string{"User-Agent": "pipios"}
	client := NewClient(c, "test:", time.Hour, headers, WithTimeout(5*time.Second))

	if client.http == nil {
		t.Fatal("NewClient() http client is nil")
	}
	if client.http.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", client.http.Timeout)
	}
	if client.cache != c {
		t.Error("NewClient() cache not set correctly")
	}
	if client.headers["User-Agent"] != "pipios" {
		t.Error("NewClient() headers not set correctly")
	}
}

func TestNewClientNilCache(t *testing.T) {
	client := NewClient(nil, "test:", 0, nil)
	if client.cache == nil {
		t.Fatal("nil backend should fall back to a null cache")
	}
}

func TestClientGet(t *testing.T) {
	type response struct {
		Message string `json:"message"`
	}

	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		gotAgent = r.Header.Get("User-Agent")
		json.NewEncoder(w).Encode(response{Message: "hello"})
	}))
	defer server.Close()

	client := NewClient(nil, "test:", time.Hour, map[string]string{"User-Agent": "pipios"}, WithHTTPClient(server.Client()))

	var resp response
	if err := client.Get(context.Background(), server.URL, &resp); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if resp.Message != "hello" {
		t.Errorf("Get() message = %q, want %q", resp.Message, "hello")
	}
	if gotAgent != "pipios" {
		t.Errorf("User-Agent = %q, want default header", gotAgent)
	}
}

func TestClientGet404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(server, nil)

	var resp map[string]string
	err := client.Get(context.Background(), server.URL, &resp)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if !perrors.Is(err, perrors.ErrCodeNotFound) {
		t.Errorf("Get() code = %s, want NOT_FOUND", perrors.GetCode(err))
	}
}

func TestClientGet500(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(server, nil)

	var resp map[string]string
	err := client.Get(context.Background(), server.URL, &resp)
	if err == nil {
		t.Fatal("Get() should return error for 500")
	}
	if !httputil.IsRetryable(err) {
		t.Errorf("Get() error should be retryable, got %T", err)
	}
	if !perrors.Is(err, perrors.ErrCodeNetworkTransient) {
		t.Errorf("Get() code = %v, want NETWORK_TRANSIENT", err)
	}
}

func TestClientGetBytesRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("archive bytes"))
	}))
	defer server.Close()

	client := testClient(server, nil)

	data, err := client.GetBytes(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetBytes() error: %v", err)
	}
	if string(data) != "archive bytes" {
		t.Errorf("GetBytes() = %q", data)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClientGetBytesNoRetryOn404(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := testClient(server, nil)

	if _, err := client.GetBytes(context.Background(), server.URL); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBytes() error = %v, want ErrNotFound", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, a 404 must not be retried", calls.Load())
	}
}

func TestClientCached(t *testing.T) {
	client := NewClient(cache.NewMemoryCache(), "test:", time.Hour, nil)

	type testData struct {
		Value string `json:"value"`
	}

	fetchCount := 0
	fetch := func(v *testData) func() error {
		return func() error {
			fetchCount++
			*v = testData{Value: "fetched"}
			return nil
		}
	}

	var first testData
	if err := client.Cached(context.Background(), "key", false, &first, fetch(&first)); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}

	var second testData
	if err := client.Cached(context.Background(), "key", false, &second, fetch(&second)); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}
	if fetchCount != 1 {
		t.Errorf("fetch count = %d, want 1", fetchCount)
	}
	if second.Value != "fetched" {
		t.Errorf("cached value = %q, want %q", second.Value, "fetched")
	}
}

func TestClientCachedRefresh(t *testing.T) {
	client := NewClient(cache.NewMemoryCache(), "test:", time.Hour, nil)

	fetchCount := 0
	var value string
	fetch := func() error {
		fetchCount++
		value = "fetched"
		return nil
	}

	for range 2 {
		if err := client.Cached(context.Background(), "test-key", true, &value, fetch); err != nil {
			t.Fatalf("Cached() error: %v", err)
		}
	}
	if fetchCount != 2 {
		t.Errorf("fetch count = %d, want 2", fetchCount)
	}
}

func TestClientCachedFetchError(t *testing.T) {
	client := NewClient(cache.NewMemoryCache(), "test:", time.Hour, nil, WithRetry(fastRetry))

	fetchCount := 0
	var value string
	err := client.Cached(context.Background(), "missing", false, &value, func() error {
		fetchCount++
		return ErrNotFound
	})
	if err == nil {
		t.Error("Cached() should return error when fetch fails")
	}
	if fetchCount != 1 {
		t.Errorf("fetch count = %d, non-retryable errors must not be retried", fetchCount)
	}
}

func TestClientCachedConcurrentFetchesCollapse(t *testing.T) {
	client := NewClient(cache.NewNullCache(), "test:", time.Hour, nil)

	var fetches atomic.Int32
	release := make(chan struct{})

	type result struct {
		Value string `json:"value"`
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]result, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = client.Cached(context.Background(), "shared", false, &results[i], func() error {
				fetches.Add(1)
				<-release
				results[i] = result{Value: "ok"}
				return nil
			})
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := fetches.Load(); n < 1 || n > callers {
		t.Fatalf("fetches = %d", n)
	}
	for i, r := range results {
		if r.Value != "ok" {
			t.Errorf("caller %d got %q", i, r.Value)
		}
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		wantCode  perrors.Code
		retryable bool
	}{
		{"200 OK", 200, "", false},
		{"404 Not Found", 404, perrors.ErrCodeNotFound, false},
		{"429 Too Many Requests", 429, perrors.ErrCodeNetworkTransient, true},
		{"500 Internal Server Error", 500, perrors.ErrCodeNetworkTransient, true},
		{"503 Service Unavailable", 503, perrors.ErrCodeNetworkTransient, true},
		{"403 Forbidden", 403, perrors.ErrCodeNetwork, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkStatus(tt.code)
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("checkStatus(%d) = %v, want nil", tt.code, err)
				}
				return
			}
			if !perrors.Is(err, tt.wantCode) {
				t.Errorf("checkStatus(%d) = %v, want %s", tt.code, err, tt.wantCode)
			}
			if httputil.IsRetryable(err) != tt.retryable {
				t.Errorf("checkStatus(%d) retryable = %v, want %v", tt.code, !tt.retryable, tt.retryable)
			}
		})
	}
}
