package deps

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/matzehuels/pipios/pkg/artifact"
	"github.com/matzehuels/pipios/pkg/dag"
	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/requirement"
	"github.com/matzehuels/pipios/pkg/site"
	"github.com/matzehuels/pipios/pkg/specifier"
	"github.com/matzehuels/pipios/pkg/version"
)

// Resolver builds installation plans by walking dependency declarations
// fetched from a [Registry].
type Resolver struct {
	registry  Registry
	installed Installed
}

// NewResolver creates a Resolver. installed may be nil, in which case no
// package is considered already satisfied.
func NewResolver(registry Registry, installed Installed) *Resolver {
	return &Resolver{registry: registry, installed: installed}
}

// Resolve walks the dependency tree of every request and returns the plan.
//
// Installed packages are recorded as satisfied without fetching anything or
// descending into their dependencies. Independent branches are resolved
// concurrently. A failure on a root request aborts the walk and is returned
// as is; parse, not-found, incompatibility and network failures below the
// root only drop that branch and are recorded in [Plan.Unresolved].
func (r *Resolver) Resolve(ctx context.Context, reqs []Request, opts Options) (*Plan, error) {
	if len(reqs) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no packages requested")
	}
	opts = opts.WithDefaults()

	s := &resolution{
		r:       r,
		opts:    opts,
		sem:     semaphore.NewWeighted(int64(opts.Workers)),
		claims:  make(map[string]*claim),
		entries: make(map[string]*Entry),
	}

	var roots []node
	var flags []string
	for _, req := range reqs {
		name := requirement.CanonicalName(req.Name)
		flags = append(flags, req.Extras...)
		if c, ok := s.claims[name]; ok {
			c.extras = union(c.extras, req.Extras)
			continue
		}
		n := node{
			name:    name,
			display: req.Name,
			version: req.Version,
			set:     req.Specifiers,
			extras:  req.Extras,
			root:    true,
		}
		s.claims[name] = &claim{node: n, extras: union(nil, req.Extras)}
		s.roots = append(s.roots, name)
		roots = append(roots, n)
	}
	s.env = opts.Env.WithFlags(flags...)

	g, gctx := errgroup.WithContext(ctx)
	for _, n := range roots {
		g.Go(func() error { return s.visit(gctx, n) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.plan(), nil
}

type node struct {
	name    string // canonical
	display string
	version string // pinned
	set     specifier.Set
	extras  []string
	depth   int
	root    bool
	parent  string
	line    string
}

type demand struct {
	name   string
	dep    requirement.Dependency
	parent string
}

// claim belongs to the one branch that resolves a name. Later requests for
// the name add their extras; once the owner has its release, extras that
// arrive afterwards are expanded against that same release.
type claim struct {
	node     node
	extras   []string // union over every request for the name
	expanded []string // extras the owner's release has been walked with
	rel      *Release // set when the owner starts descending
}

type resolution struct {
	r    *Resolver
	opts Options
	env  requirement.Environment
	sem  *semaphore.Weighted

	mu         sync.Mutex
	roots      []string
	claims     map[string]*claim
	entries    map[string]*Entry
	edges      []dag.Edge
	demands    []demand
	unresolved []Unresolved
}

func (s *resolution) visit(ctx context.Context, n node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := s.opts.Logger

	rec, err := s.installedVersion(n)
	if err != nil {
		return err
	}
	if rec != nil {
		logger.Info("already satisfied", "name", n.display, "version", rec.Version)
		s.add(Entry{
			Name:    n.name,
			Display: cmp.Or(rec.Name, n.display),
			Version: rec.Version,
			Summary: rec.Summary,
			Status:  StatusSatisfied,
			Root:    n.root,
			Depth:   n.depth,
			Extras:  n.extras,
		})
		return nil
	}

	rel, err := s.fetch(ctx, n)
	if err != nil {
		return err
	}
	art, err := artifact.Select(rel.Artifacts, s.env)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIncompatible, err, "%s %s", n.display, rel.Version)
	}
	logger.Debug("resolved", "name", n.display, "version", rel.Version, "artifact", art.Filename)
	extras := s.own(n.name, rel)
	s.add(Entry{
		Name:     n.name,
		Display:  cmp.Or(rel.Name, n.display),
		Version:  rel.Version,
		Summary:  rel.Summary,
		Status:   StatusInstall,
		Artifact: art,
		Root:     n.root,
		Depth:    n.depth,
		Extras:   extras,
	})
	return s.descend(ctx, n, rel, extras, nil)
}

// own records rel as the release of name and returns the extras to walk it
// with.
func (s *resolution) own(name string, rel *Release) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.claims[name]
	c.rel = rel
	c.expanded = slices.Clone(c.extras)
	return c.expanded
}

// widen adds extras to an existing claim. When the owner already holds its
// release and the extras are new, it returns what is needed to walk the
// requirement lines they enable; rel is nil otherwise.
func (s *resolution) widen(c *claim, extras []string) (owner node, rel *Release, now, before []string) {
	c.extras = union(c.extras, extras)
	if c.rel == nil || len(c.extras) == len(c.expanded) {
		return node{}, nil, nil, nil
	}
	before = append([]string{}, c.expanded...)
	c.expanded = slices.Clone(c.extras)
	return c.node, c.rel, c.expanded, before
}

func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, x := range b {
		if !slices.Contains(out, x) {
			out = append(out, x)
		}
	}
	return out
}

// installedVersion returns the installed record that satisfies n, if any.
// Upgraded roots and pins that differ from the installed version are never
// satisfied.
func (s *resolution) installedVersion(n node) (*site.Record, error) {
	if s.r.installed == nil || (n.root && s.opts.Upgrade) {
		return nil, nil
	}
	found, err := s.r.installed.Lookup(n.name)
	if err != nil {
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeFilesystem, err, "scan installed %s", n.display)
		}
		return nil, err
	}
	if found == nil || found.Partial {
		return nil, nil
	}
	if n.version != "" && !sameVersion(n.version, found.Version) {
		return nil, nil
	}
	return found, nil
}

func sameVersion(a, b string) bool {
	va, errA := version.Parse(a)
	vb, errB := version.Parse(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return va.Equal(vb)
}

// fetch retrieves the release to install for n, holding a worker slot for
// the duration of the registry calls.
func (s *resolution) fetch(ctx context.Context, n node) (*Release, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	reg := s.r.registry
	if n.version != "" {
		return reg.Release(ctx, n.name, n.version, s.opts.Refresh)
	}
	proj, err := reg.Project(ctx, n.name, s.opts.Refresh)
	if err != nil {
		return nil, err
	}
	v, err := SelectVersion(proj, n.set, s.env, s.opts.AllowPrereleases)
	if err != nil {
		return nil, err
	}
	return reg.Release(ctx, n.name, v, s.opts.Refresh)
}

// descend resolves the applicable dependencies of rel concurrently under
// extras. Each name is claimed by the first branch to reach it; later
// branches record the edge and widen the claim's extras. A non-nil before
// lists extras rel was already walked with, and lines applicable under them
// are skipped.
func (s *resolution) descend(ctx context.Context, n node, rel *Release, extras, before []string) error {
	logger := s.opts.Logger
	if n.depth+1 > s.opts.MaxDepth {
		logger.Warn("max depth reached", "name", n.display, "depth", n.depth)
		return nil
	}
	env := s.env.WithFlags(extras...)
	var done *requirement.Environment
	if before != nil {
		prev := s.env.WithFlags(before...)
		done = &prev
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, line := range rel.Requires {
		dep, err := requirement.ParseLine(line)
		if err != nil {
			if done == nil {
				s.skip(Unresolved{Name: line, Requirement: line, Parent: n.name, Err: err})
			}
			continue
		}
		if !dep.Applies(env) {
			logger.Debug("predicate false", "parent", n.display, "requirement", line)
			continue
		}
		if done != nil && dep.Applies(*done) {
			continue
		}
		child := dep.Canonical()
		if child == n.name {
			continue
		}

		s.mu.Lock()
		s.edges = append(s.edges, dag.Edge{From: n.name, To: child, Meta: dag.Metadata{"requirement": line}})
		s.demands = append(s.demands, demand{name: child, dep: dep, parent: n.name})
		if c, ok := s.claims[child]; ok {
			owner, orel, now, prior := s.widen(c, dep.Extras)
			s.mu.Unlock()
			if orel != nil {
				logger.Debug("extras widened", "name", owner.display, "extras", now)
				g.Go(func() error { return s.descend(gctx, owner, orel, now, prior) })
			}
			continue
		}

		cn := node{
			name:    child,
			display: dep.Name,
			set:     dep.Specifiers,
			extras:  dep.Extras,
			depth:   n.depth + 1,
			parent:  n.name,
			line:    line,
		}
		s.claims[child] = &claim{node: cn, extras: union(nil, dep.Extras)}
		s.mu.Unlock()
		g.Go(func() error {
			err := s.visit(gctx, cn)
			if err == nil || !errors.IsBranchLocal(err) {
				return err
			}
			s.skip(Unresolved{Name: cn.name, Requirement: cn.line, Parent: cn.parent, Err: err})
			return nil
		})
	}
	return g.Wait()
}

func (s *resolution) add(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Name] = &e
}

func (s *resolution) skip(u Unresolved) {
	s.opts.Logger.Warn("dependency skipped", "name", u.Name, "parent", u.Parent, "err", u.Err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unresolved = append(s.unresolved, u)
}

// plan assembles the result once every branch has finished.
func (s *resolution) plan() *Plan {
	p := &Plan{
		ID:    uuid.NewString(),
		Roots: s.roots,
		graph: dag.New(),
	}

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		e := *s.entries[name]
		if c, ok := s.claims[name]; ok && len(c.extras) > 0 {
			e.Extras = slices.Sorted(slices.Values(c.extras))
		}
		p.Entries = append(p.Entries, e)
		_ = p.graph.AddNode(dag.Node{ID: name, Meta: dag.Metadata{"version": e.Version, "status": string(e.Status)}})
	}
	edges := slices.Clone(s.edges)
	slices.SortFunc(edges, func(a, b dag.Edge) int {
		return cmp.Or(cmp.Compare(a.From, b.From), cmp.Compare(a.To, b.To))
	})
	for _, e := range edges {
		_ = p.graph.AddEdge(e)
	}
	s.opts.Logger.Debug("plan graph", "packages", p.graph.NodeCount(), "edges", p.graph.EdgeCount())

	for _, d := range s.demands {
		e, ok := s.entries[d.name]
		if !ok || len(d.dep.Specifiers) == 0 || e.Version == "" {
			continue
		}
		if d.dep.Specifiers.SatisfiesString(e.Version) {
			continue
		}
		s.opts.Logger.Warn("version conflict", "name", e.Display, "version", e.Version,
			"requirement", d.dep.String(), "parent", d.parent)
		p.Conflicts = append(p.Conflicts, Conflict{
			Name:        d.name,
			Version:     e.Version,
			Requirement: d.dep.Raw,
			Parent:      d.parent,
		})
	}

	p.Unresolved = slices.Clone(s.unresolved)
	slices.SortStableFunc(p.Unresolved, func(a, b Unresolved) int {
		return cmp.Or(cmp.Compare(a.Parent, b.Parent), cmp.Compare(a.Name, b.Name))
	})
	return p
}
