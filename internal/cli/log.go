package cli

import (
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipios/pkg/errors"
)

// newLogger writes timestamped lines ("14:32:01.45") to w at level. Lines
// carry the tool name so they stay attributable when a host app captures
// stderr alongside its own output.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
		Prefix:          appName,
	})
}

// ParseLevel maps a --log-level value such as "warn" to a logger level.
func ParseLevel(s string) (log.Level, error) {
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return log.InfoLevel, errors.New(errors.ErrCodeInvalidInput,
			"unknown log level %q (want debug, info, warn or error)", s)
	}
	return level, nil
}

// progress times a multi-step command.
type progress struct {
	logger *log.Logger
	start  time.Time
	last   time.Time
}

func newProgress(l *log.Logger) *progress {
	now := time.Now()
	return &progress{logger: l, start: now, last: now}
}

// step logs a finished phase at debug level with the time it took.
func (p *progress) step(phase string, keyvals ...any) {
	now := time.Now()
	p.logger.Debug(phase, append(keyvals, "took", now.Sub(p.last).Round(time.Millisecond))...)
	p.last = now
}

// done logs msg along with the total elapsed time, e.g.
// "installed 3 packages into ./site-packages (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
