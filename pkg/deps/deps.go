package deps

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipios/pkg/artifact"
	"github.com/matzehuels/pipios/pkg/requirement"
	"github.com/matzehuels/pipios/pkg/site"
)

const (
	DefaultWorkers  = 8  // Default concurrent registry fetches
	DefaultMaxDepth = 50 // Default maximum dependency depth
)

// Options configures dependency resolution behavior.
type Options struct {
	Env              requirement.Environment // Target runtime for predicates and artifact matching
	Workers          int                     // Concurrent registry fetches (default: 8)
	MaxDepth         int                     // Maximum depth to traverse (default: 50)
	Upgrade          bool                    // Re-resolve root requests even when installed
	Refresh          bool                    // Bypass cache for fresh data
	AllowPrereleases bool                    // Consider pre-releases for every request
	Logger           *log.Logger             // Progress/error logger (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return opts
}

// Registry retrieves release metadata for resolution.
type Registry interface {
	// Project returns the release history of name. If refresh is true,
	// cached data is bypassed.
	Project(ctx context.Context, name string, refresh bool) (*Project, error)
	// Release returns a single version of name, including its dependency lines.
	Release(ctx context.Context, name, version string, refresh bool) (*Release, error)
}

// Installed reports what is already present in the target directory.
// [site.Index] satisfies it.
type Installed interface {
	Lookup(name string) (*site.Record, error)
}

// Project is the release history of a package.
type Project struct {
	Name      string                           // Display name as registered
	Latest    string                           // Version the registry reports as current
	Versions  []string                         // Known versions, oldest first
	Artifacts map[string][]artifact.Descriptor // Downloadable files per version
}

// Release is a single version of a package.
type Release struct {
	Name      string
	Version   string
	Summary   string
	Requires  []string              // Raw dependency lines, unfiltered
	Artifacts []artifact.Descriptor // Registry order
}
