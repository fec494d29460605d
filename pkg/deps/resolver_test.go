package deps

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/matzehuels/pipios/pkg/artifact"
	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/requirement"
	"github.com/matzehuels/pipios/pkg/site"
	"github.com/matzehuels/pipios/pkg/version"
)

func testEnv(py string) requirement.Environment {
	return requirement.Environment{
		Interpreter:    version.MustParse(py),
		Platform:       "macosx_10_9_x86_64",
		SysPlatform:    "ios",
		Implementation: "cpython",
	}
}

// fakeRegistry serves pure wheels for every version it knows.
type fakeRegistry struct {
	versions map[string][]string            // name -> versions, oldest first
	requires map[string]map[string][]string // name -> version -> lines
	noWheel  map[string]bool                // name@version without a compatible artifact

	calls atomic.Int64
	mu    sync.Mutex
	seen  []string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		versions: map[string][]string{},
		requires: map[string]map[string][]string{},
		noWheel:  map[string]bool{},
	}
}

func (f *fakeRegistry) add(name string, versions []string, requires map[string][]string) {
	f.versions[name] = versions
	f.requires[name] = requires
}

func (f *fakeRegistry) artifacts(name, v string) []artifact.Descriptor {
	if f.noWheel[name+"@"+v] {
		return []artifact.Descriptor{artifact.FromFilename(name+"-"+v+"-cp27-cp27m-win32.whl", "", v)}
	}
	file := name + "-" + v + "-py3-none-any.whl"
	return []artifact.Descriptor{artifact.FromFilename(file, "https://files.example/"+file, v)}
}

func (f *fakeRegistry) record(name string) {
	f.calls.Add(1)
	f.mu.Lock()
	f.seen = append(f.seen, name)
	f.mu.Unlock()
}

func (f *fakeRegistry) Project(_ context.Context, name string, _ bool) (*Project, error) {
	f.record(name)
	vs, ok := f.versions[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "project %s", name)
	}
	p := &Project{Name: name, Versions: vs, Artifacts: map[string][]artifact.Descriptor{}}
	if len(vs) > 0 {
		p.Latest = vs[len(vs)-1]
	}
	for _, v := range vs {
		p.Artifacts[v] = f.artifacts(name, v)
	}
	return p, nil
}

func (f *fakeRegistry) Release(_ context.Context, name, v string, _ bool) (*Release, error) {
	f.record(name + "@" + v)
	if !slices.Contains(f.versions[name], v) {
		return nil, errors.New(errors.ErrCodeNotFound, "release %s %s", name, v)
	}
	return &Release{
		Name:      name,
		Version:   v,
		Requires:  f.requires[name][v],
		Artifacts: f.artifacts(name, v),
	}, nil
}

type fakeInstalled map[string]*site.Record

func (f fakeInstalled) Lookup(name string) (*site.Record, error) {
	return f[requirement.CanonicalName(name)], nil
}

func resolve(t *testing.T, reg Registry, installed Installed, opts Options, reqs ...string) *Plan {
	t.Helper()
	var parsed []Request
	for _, r := range reqs {
		req, err := ParseRequest(r)
		if err != nil {
			t.Fatalf("ParseRequest(%q): %v", r, err)
		}
		parsed = append(parsed, req)
	}
	plan, err := NewResolver(reg, installed).Resolve(context.Background(), parsed, opts)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return plan
}

func TestResolveDemo(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("demo", []string{"1.0.0", "1.1.0"}, map[string][]string{
		"1.1.0": {"libx (>=2.0,<3.0)"},
	})
	reg.add("libx", []string{"1.9.0", "2.0.0", "2.5.0", "3.0.0"}, nil)

	plan := resolve(t, reg, nil, Options{Env: testEnv("3.10.4")}, "demo")

	demo, ok := plan.Entry("demo")
	if !ok || demo.Version != "1.1.0" || !demo.Root {
		t.Fatalf("demo entry = %+v, %v", demo, ok)
	}
	libx, ok := plan.Entry("libx")
	if !ok || libx.Version != "2.5.0" {
		t.Fatalf("libx entry = %+v, %v; want 2.5.0", libx, ok)
	}
	if libx.Artifact.Filename != "libx-2.5.0-py3-none-any.whl" {
		t.Errorf("libx artifact = %q", libx.Artifact.Filename)
	}

	order := plan.InstallOrder()
	if len(order) != 2 || order[0].Name != "libx" || order[1].Name != "demo" {
		t.Errorf("InstallOrder = %v, want [libx demo]", names(order))
	}
	if plan.ID == "" {
		t.Error("plan has no ID")
	}
	if cycles := plan.Cycles(); cycles != nil {
		t.Errorf("Cycles = %v, want none", cycles)
	}
}

func TestResolveSkipsFalsePredicate(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("app", []string{"1.0"}, map[string][]string{
		"1.0": {`numx (>=1.20) ; interpreter-version < "3.10"`, "six"},
	})
	reg.add("numx", []string{"1.20", "1.21"}, nil)
	reg.add("six", []string{"1.16.0"}, nil)

	plan := resolve(t, reg, nil, Options{Env: testEnv("3.11.2")}, "app")

	if _, ok := plan.Entry("numx"); ok {
		t.Error("numx should be skipped under python 3.11")
	}
	if _, ok := plan.Entry("six"); !ok {
		t.Error("six missing from plan")
	}
	for _, s := range reg.seen {
		if s == "numx" {
			t.Error("registry queried for numx")
		}
	}
}

func TestResolveFeatureFlags(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("web", []string{"2.0"}, map[string][]string{
		"2.0": {`uvloop ; extra == "speed"`, `pytest ; extra == "tests"`},
	})
	reg.add("uvloop", []string{"0.19"}, nil)
	reg.add("pytest", []string{"8.0"}, nil)

	plan := resolve(t, reg, nil, Options{Env: testEnv("3.10.4")}, "web[speed]")

	if _, ok := plan.Entry("uvloop"); !ok {
		t.Error("uvloop should be enabled by the speed extra")
	}
	if _, ok := plan.Entry("pytest"); ok {
		t.Error("pytest should not be enabled")
	}
}

func TestResolveExtrasFromLaterRequest(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("app", []string{"1.0"}, map[string][]string{"1.0": {"libx", "b"}})
	reg.add("b", []string{"1.0"}, map[string][]string{"1.0": {"libx[fast]"}})
	reg.add("libx", []string{"2.0"}, map[string][]string{
		"2.0": {`speedup ; extra == "fast"`, "six"},
	})
	reg.add("speedup", []string{"0.3"}, nil)
	reg.add("six", []string{"1.16.0"}, nil)

	// Either branch may reach libx first; both orders must enable the extra.
	for i := range 25 {
		plan := resolve(t, reg, nil, Options{Env: testEnv("3.10.4")}, "app")

		if _, ok := plan.Entry("speedup"); !ok {
			t.Fatalf("run %d: speedup missing from plan %v", i, names(plan.Entries))
		}
		libx, _ := plan.Entry("libx")
		if !slices.Equal(libx.Extras, []string{"fast"}) {
			t.Errorf("run %d: libx extras = %v, want [fast]", i, libx.Extras)
		}
		edges := 0
		for _, e := range plan.Graph().Edges() {
			if e.From == "libx" {
				edges++
			}
		}
		if edges != 2 {
			t.Errorf("run %d: libx has %d outgoing edges, want 2", i, edges)
		}
		if len(plan.Unresolved) != 0 || len(plan.Conflicts) != 0 {
			t.Errorf("run %d: unresolved %v, conflicts %v", i, plan.Unresolved, plan.Conflicts)
		}
	}
}

func TestResolveCycle(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("a", []string{"1.0"}, map[string][]string{"1.0": {"b"}})
	reg.add("b", []string{"1.0"}, map[string][]string{"1.0": {"a (>=1.0)"}})

	plan := resolve(t, reg, nil, Options{Env: testEnv("3.10.4")}, "a")

	if len(plan.Entries) != 2 {
		t.Fatalf("entries = %v, want a and b once", names(plan.Entries))
	}
	if got := len(plan.InstallOrder()); got != 2 {
		t.Errorf("InstallOrder has %d entries, want 2", got)
	}
	if len(plan.Conflicts) != 0 {
		t.Errorf("unexpected conflicts: %+v", plan.Conflicts)
	}

	cycles := plan.Cycles()
	if len(cycles) != 1 || cycles[0].From != "b" || cycles[0].To != "a" {
		t.Errorf("Cycles = %+v, want [b -> a]", cycles)
	}
	if got := plan.Cycles(); len(got) != 1 {
		t.Errorf("Cycles changed the plan graph: %+v", got)
	}
	if deps := plan.Dependencies("A"); !slices.Equal(deps, []string{"b"}) {
		t.Errorf("Dependencies(a) = %v", deps)
	}
	if dependents := plan.Dependents("b"); !slices.Equal(dependents, []string{"a"}) {
		t.Errorf("Dependents(b) = %v", dependents)
	}
}

func TestResolveInstalledIsIdempotent(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("demo", []string{"1.1.0"}, nil)
	installed := fakeInstalled{"demo": {Name: "demo", Version: "1.1.0"}}

	plan := resolve(t, reg, installed, Options{Env: testEnv("3.10.4")}, "demo")

	e, ok := plan.Entry("demo")
	if !ok || e.Status != StatusSatisfied || e.Version != "1.1.0" {
		t.Fatalf("entry = %+v, %v", e, ok)
	}
	if n := reg.calls.Load(); n != 0 {
		t.Errorf("registry called %d times, want 0", n)
	}
	if len(plan.InstallOrder()) != 0 {
		t.Error("satisfied entries must not be installed")
	}
	if len(plan.Satisfied()) != 1 {
		t.Error("Satisfied() should list demo")
	}
}

func TestResolveInstalledDependencyNotDescended(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("app", []string{"1.0"}, map[string][]string{"1.0": {"lib"}})
	reg.add("lib", []string{"1.0"}, map[string][]string{"1.0": {"deep"}})
	installed := fakeInstalled{"lib": {Name: "lib", Version: "1.0"}}

	plan := resolve(t, reg, installed, Options{Env: testEnv("3.10.4")}, "app")

	if _, ok := plan.Entry("deep"); ok {
		t.Error("dependencies of an installed package must not be resolved")
	}
}

func TestResolvePartialInstallIsReinstalled(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("demo", []string{"1.1.0"}, nil)
	installed := fakeInstalled{"demo": {Name: "demo", Version: "1.1.0", Partial: true}}

	plan := resolve(t, reg, installed, Options{Env: testEnv("3.10.4")}, "demo")

	if e, _ := plan.Entry("demo"); e.Status != StatusInstall {
		t.Errorf("status = %q, want install", e.Status)
	}
}

func TestResolveUpgrade(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("demo", []string{"1.0.0", "1.1.0"}, nil)
	installed := fakeInstalled{"demo": {Name: "demo", Version: "1.0.0"}}

	plan := resolve(t, reg, installed, Options{Env: testEnv("3.10.4"), Upgrade: true}, "demo")

	e, _ := plan.Entry("demo")
	if e.Status != StatusInstall || e.Version != "1.1.0" {
		t.Errorf("entry = %+v, want install 1.1.0", e)
	}
}

func TestResolvePinnedVersion(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("demo", []string{"1.0.0", "1.1.0"}, nil)
	installed := fakeInstalled{"demo": {Name: "demo", Version: "1.1.0"}}

	plan := resolve(t, reg, installed, Options{Env: testEnv("3.10.4")}, "demo==1.0.0")

	e, _ := plan.Entry("demo")
	if e.Status != StatusInstall || e.Version != "1.0.0" {
		t.Errorf("entry = %+v, want install 1.0.0", e)
	}
	if slices.Contains(reg.seen, "demo") {
		t.Error("pinned requests should not fetch the project history")
	}
}

func TestResolveRootErrors(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("demo", []string{"1.0.0"}, nil)
	reg.noWheel["demo@1.0.0"] = true

	tests := []struct {
		req  string
		code errors.Code
	}{
		{"missing", errors.ErrCodeNotFound},
		{"demo==9.9", errors.ErrCodeNotFound},
		{"demo", errors.ErrCodeIncompatible},
	}

	for _, tt := range tests {
		t.Run(tt.req, func(t *testing.T) {
			req, err := ParseRequest(tt.req)
			if err != nil {
				t.Fatal(err)
			}
			_, err = NewResolver(reg, nil).Resolve(context.Background(), []Request{req}, Options{Env: testEnv("3.10.4")})
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestResolveBranchErrorsAreRecorded(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("app", []string{"1.0"}, map[string][]string{
		"1.0": {"ghost", "broken (>=)", "ok"},
	})
	reg.add("ok", []string{"1.0"}, nil)

	plan := resolve(t, reg, nil, Options{Env: testEnv("3.10.4")}, "app")

	if _, ok := plan.Entry("ok"); !ok {
		t.Error("sibling ok should still resolve")
	}
	if len(plan.Unresolved) != 2 {
		t.Fatalf("unresolved = %+v, want 2", plan.Unresolved)
	}
	for _, u := range plan.Unresolved {
		if u.Parent != "app" {
			t.Errorf("parent = %q, want app", u.Parent)
		}
		if !errors.IsBranchLocal(u.Err) {
			t.Errorf("%s: error %v is not branch-local", u.Name, u.Err)
		}
	}
}

func TestResolveConflicts(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("app", []string{"1.0"}, map[string][]string{"1.0": {"left", "right"}})
	reg.add("left", []string{"1.0"}, map[string][]string{"1.0": {"core (<2.0)"}})
	reg.add("right", []string{"1.0"}, map[string][]string{"1.0": {"core (>=2.0)"}})
	reg.add("core", []string{"1.5", "2.1"}, nil)

	plan := resolve(t, reg, nil, Options{Env: testEnv("3.10.4"), Workers: 1}, "app")

	core, ok := plan.Entry("core")
	if !ok {
		t.Fatal("core missing")
	}
	if len(plan.Conflicts) != 1 {
		t.Fatalf("conflicts = %+v, want exactly one", plan.Conflicts)
	}
	c := plan.Conflicts[0]
	if c.Name != "core" || c.Version != core.Version {
		t.Errorf("conflict = %+v, core = %s", c, core.Version)
	}
}

func TestResolveDeduplicatesRoots(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("demo", []string{"1.0"}, nil)

	plan := resolve(t, reg, nil, Options{Env: testEnv("3.10.4")}, "demo", "Demo")

	if len(plan.Roots) != 1 || len(plan.Entries) != 1 {
		t.Errorf("roots = %v, entries = %v", plan.Roots, names(plan.Entries))
	}
}

func TestResolveNoRequests(t *testing.T) {
	_, err := NewResolver(newFakeRegistry(), nil).Resolve(context.Background(), nil, Options{})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestResolveCanceled(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("demo", []string{"1.0"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewResolver(reg, nil).Resolve(ctx, []Request{{Name: "demo"}}, Options{Env: testEnv("3.10.4")})
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}
