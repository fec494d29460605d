package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestLogHooks(t *testing.T) {
	t.Cleanup(Reset)

	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	NewLogHooks(logger).Register()

	ctx := context.Background()
	Pipeline().OnInstallComplete(ctx, "urllib3", "2.0.7", 42, 1500*time.Microsecond, nil)
	Cache().OnCacheHit(ctx, "pypi:")
	HTTP().OnError(ctx, "GET", "pypi.org", "/pypi/ghost/json", errors.New("connection refused"))

	out := buf.String()
	for _, want := range []string{"trace", "install done", "name=urllib3", "files=42", "cache hit", "connection refused"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLogHooksQuietAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	h := NewLogHooks(log.NewWithOptions(&buf, log.Options{Level: log.InfoLevel}))
	h.OnResolveStart(context.Background(), "requests")
	if buf.Len() != 0 {
		t.Errorf("unexpected output at info level: %s", buf.String())
	}
}
