package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks reports every event as a debug line on a logger.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks that log to l under the "trace" prefix.
func NewLogHooks(l *log.Logger) *LogHooks {
	return &LogHooks{logger: l.WithPrefix("trace")}
}

// Register installs h as the pipeline, cache and HTTP hooks.
func (h *LogHooks) Register() {
	SetPipelineHooks(h)
	SetCacheHooks(h)
	SetHTTPHooks(h)
}

func (h *LogHooks) OnResolveStart(_ context.Context, root string) {
	h.logger.Debug("resolve start", "root", root)
}

func (h *LogHooks) OnResolveComplete(_ context.Context, root string, entries int, d time.Duration, err error) {
	h.logger.Debug("resolve done", "root", root, "entries", entries, "took", d.Round(time.Millisecond), "err", err)
}

func (h *LogHooks) OnInstallStart(_ context.Context, name, version string) {
	h.logger.Debug("install start", "name", name, "version", version)
}

func (h *LogHooks) OnInstallComplete(_ context.Context, name, version string, files int, d time.Duration, err error) {
	h.logger.Debug("install done", "name", name, "version", version, "files", files,
		"took", d.Round(time.Millisecond), "err", err)
}

func (h *LogHooks) OnUninstall(_ context.Context, name string, removed bool, err error) {
	h.logger.Debug("uninstall", "name", name, "removed", removed, "err", err)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path,
		"status", status, "took", d.Round(time.Millisecond))
}

func (h *LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ HTTPHooks     = (*LogHooks)(nil)
)
