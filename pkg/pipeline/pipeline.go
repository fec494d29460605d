// Package pipeline wires resolution and installation into the surface that
// front ends call.
//
// A [Runner] owns one target directory. It resolves requests against the
// package index, installs the resulting plans, and answers questions about
// what is installed:
//
//	r, err := pipeline.NewRunner(pipeline.Options{
//	    Target: "./site-packages",
//	    Env:    env,
//	})
//	plan, err := r.Resolve(ctx, "demo", "")
//	records, err := r.Install(ctx, plan)
//
// Registry responses are cached for the lifetime of the Runner only.
package pipeline

import (
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/integrations/pypi"
	"github.com/matzehuels/pipios/pkg/requirement"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	DefaultTimeout    = 30 * time.Second
	DefaultRetries    = 3
	DefaultRetryDelay = time.Second
	DefaultCacheTTL   = time.Hour
)

// DefaultIndexURL is the JSON API root of the public package index.
const DefaultIndexURL = pypi.DefaultBaseURL

// =============================================================================
// Options
// =============================================================================

// Options configures a [Runner].
type Options struct {
	Target   string                  // Directory packages are installed into (required)
	IndexURL string                  // Package index JSON API root
	Env      requirement.Environment // Target runtime

	Workers    int           // Concurrent registry fetches during resolution
	Timeout    time.Duration // Per-request timeout
	Retries    int           // Attempts for transient network failures
	RetryDelay time.Duration // Initial backoff between attempts
	CacheTTL   time.Duration // Lifetime of cached registry responses
	NoCache    bool          // Fetch every registry response afresh

	HTTPClient *http.Client // Optional; replaces the default transport
	Logger     *log.Logger
}

// ResolveOptions tunes a single resolution.
type ResolveOptions struct {
	Upgrade          bool // Re-resolve requested packages even when installed
	Refresh          bool // Ignore cached registry responses
	AllowPrereleases bool // Consider pre-releases for every request
	MaxDepth         int  // Zero uses the resolver default
}

// validate checks required fields and fills in defaults.
func (o *Options) validate() error {
	if o.Target == "" {
		return errors.New(errors.ErrCodeInvalidInput, "target directory is required")
	}
	if o.Env.Interpreter.Len() == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "interpreter version is required")
	}
	if o.IndexURL == "" {
		o.IndexURL = DefaultIndexURL
	}
	if err := errors.ValidateURL(o.IndexURL); err != nil {
		return err
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Retries <= 0 {
		o.Retries = DefaultRetries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return nil
}
