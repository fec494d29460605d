package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipios/pkg/cache"
	"github.com/matzehuels/pipios/pkg/deps"
	"github.com/matzehuels/pipios/pkg/deps/python"
	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/httputil"
	"github.com/matzehuels/pipios/pkg/install"
	"github.com/matzehuels/pipios/pkg/integrations"
	"github.com/matzehuels/pipios/pkg/integrations/pypi"
	"github.com/matzehuels/pipios/pkg/observability"
	"github.com/matzehuels/pipios/pkg/requirement"
	"github.com/matzehuels/pipios/pkg/site"
)

// Runner resolves and installs packages into one target directory.
//
// The Runner holds no per-operation state besides the registry response
// cache, so multiple goroutines can share one. Installs of the same package
// name are serialized.
type Runner struct {
	Logger *log.Logger

	env       requirement.Environment
	workers   int
	client    *pypi.Client
	index     *site.Index
	resolver  *deps.Resolver
	installer *install.Installer
}

// NewRunner validates opts and builds a Runner.
func NewRunner(opts Options) (*Runner, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var backend cache.Cache = cache.NewMemoryCache()
	if opts.NoCache {
		backend = cache.NewNullCache()
	}
	client := pypi.NewClient(backend, opts.IndexURL, opts.CacheTTL,
		integrations.WithHTTPClient(opts.HTTPClient),
		integrations.WithTimeout(opts.Timeout),
		integrations.WithRetry(httputil.Policy{Attempts: opts.Retries, Delay: opts.RetryDelay}),
	)
	index := site.NewIndex(opts.Target)

	return &Runner{
		Logger:    opts.Logger,
		env:       opts.Env,
		workers:   opts.Workers,
		client:    client,
		index:     index,
		resolver:  deps.NewResolver(python.NewRegistry(client), index),
		installer: install.New(index, client, install.WithLogger(opts.Logger)),
	}, nil
}

// Target returns the directory the Runner installs into.
func (r *Runner) Target() string { return r.index.Root() }

// Env returns the target runtime.
func (r *Runner) Env() requirement.Environment { return r.env }

// =============================================================================
// Resolution
// =============================================================================

// Resolve resolves a single package. name may carry extras and a version
// constraint ("libx[fast]>=2"); a non-empty version pins it exactly.
func (r *Runner) Resolve(ctx context.Context, name, version string) (*deps.Plan, error) {
	req, err := deps.ParseRequest(name)
	if err != nil {
		return nil, err
	}
	if version != "" {
		req.Version = version
		req.Specifiers = nil
	}
	return r.ResolveRequests(ctx, []deps.Request{req}, ResolveOptions{})
}

// ResolveRequests resolves several root requests into one plan.
//
// Failures below a root are recorded in the plan's Unresolved list; a
// failure of a root itself aborts resolution and is returned as is.
func (r *Runner) ResolveRequests(ctx context.Context, reqs []deps.Request, opts ResolveOptions) (plan *deps.Plan, err error) {
	root := requestsLabel(reqs)
	hooks := observability.Pipeline()
	hooks.OnResolveStart(ctx, root)
	start := time.Now()
	defer func() {
		entries := 0
		if plan != nil {
			entries = len(plan.Entries)
		}
		hooks.OnResolveComplete(ctx, root, entries, time.Since(start), err)
	}()

	plan, err = r.resolver.Resolve(ctx, reqs, deps.Options{
		Env:              r.env,
		Workers:          r.workers,
		MaxDepth:         opts.MaxDepth,
		Upgrade:          opts.Upgrade,
		Refresh:          opts.Refresh,
		AllowPrereleases: opts.AllowPrereleases,
		Logger:           r.Logger,
	})
	if err != nil {
		return nil, err
	}
	r.Logger.Debug("resolved plan",
		"plan", plan.ID,
		"packages", len(plan.Entries),
		"install", len(plan.InstallOrder()),
		"unresolved", len(plan.Unresolved),
		"duration", time.Since(start).Round(time.Millisecond))
	return plan, nil
}

// ResolveManifest reads a requirements file (or poetry.lock) and resolves
// every line in it as a root request.
func (r *Runner) ResolveManifest(ctx context.Context, path string, opts ResolveOptions) (*deps.Plan, error) {
	reqs, err := r.ReadManifest(path)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s lists no packages for this environment", path)
	}
	return r.ResolveRequests(ctx, reqs, opts)
}

// ReadManifest parses a requirements file (or poetry.lock) into requests,
// dropping lines whose markers exclude the target runtime.
func (r *Runner) ReadManifest(path string) ([]deps.Request, error) {
	reqs, err := python.ReadManifest(path, r.env)
	if err != nil {
		return nil, err
	}
	r.Logger.Debug("read manifest", "path", path, "requests", len(reqs))
	return reqs, nil
}

func requestsLabel(reqs []deps.Request) string {
	names := make([]string, len(reqs))
	for i, req := range reqs {
		names[i] = req.String()
	}
	return strings.Join(names, ",")
}

// =============================================================================
// Installation
// =============================================================================

// Install installs every entry of plan that is not already satisfied,
// dependencies first. It stops at the first failure and returns the records
// installed until then.
func (r *Runner) Install(ctx context.Context, plan *deps.Plan) ([]site.Record, error) {
	if plan == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no plan to install")
	}
	order := plan.InstallOrder()
	if len(order) == 0 {
		return nil, nil
	}
	r.Logger.Debug("installing plan", "plan", plan.ID, "packages", len(order), "target", r.Target())
	return r.installer.Install(ctx, order)
}

// IsInstalled reports whether a complete install of name is present.
func (r *Runner) IsInstalled(name string) (bool, error) {
	return r.index.IsInstalled(name)
}

// Uninstall removes name and reports whether anything was removed.
func (r *Runner) Uninstall(ctx context.Context, name string) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, errors.New(errors.ErrCodeInvalidInput, "package name is required")
	}
	if err := errors.ValidatePythonPackageName(name); err != nil {
		return false, err
	}
	return r.installer.Uninstall(ctx, name)
}

// =============================================================================
// Queries
// =============================================================================

// List returns the installed packages sorted by name.
func (r *Runner) List() ([]site.Record, error) {
	return r.index.List()
}

// Lookup returns the installed record for name, or nil if it is not
// installed. Interrupted installs count as not installed.
func (r *Runner) Lookup(name string) (*site.Record, error) {
	rec, err := r.index.Lookup(name)
	if err != nil || rec == nil || rec.Partial {
		return nil, err
	}
	return rec, nil
}

// Usage is the disk footprint of one installed package.
type Usage struct {
	Name  string
	Files int
	Bytes int64
}

// Size returns the disk usage of name, or of every installed package when
// name is empty.
func (r *Runner) Size(name string) ([]Usage, error) {
	var recs []site.Record
	if name != "" {
		rec, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, errors.New(errors.ErrCodeNotFound, "%s is not installed", name)
		}
		recs = []site.Record{*rec}
	} else {
		var err error
		if recs, err = r.List(); err != nil {
			return nil, err
		}
	}

	out := make([]Usage, 0, len(recs))
	for i := range recs {
		files, bytes, err := r.index.Size(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, Usage{Name: recs[i].Name, Files: files, Bytes: bytes})
	}
	return out, nil
}

// Releases returns every version the index knows for name, oldest first,
// along with the version it reports as current.
func (r *Runner) Releases(ctx context.Context, name string) (versions []string, latest string, err error) {
	p, err := r.client.FetchProject(ctx, name, false)
	if err != nil {
		return nil, "", err
	}
	return p.Versions, p.Latest, nil
}
