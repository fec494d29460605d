package io

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/pipios/pkg/artifact"
	"github.com/matzehuels/pipios/pkg/deps"
	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/requirement"
	"github.com/matzehuels/pipios/pkg/version"
)

// cycleRegistry serves a -> b -> a, each with one pure wheel.
type cycleRegistry map[string][]string

func (r cycleRegistry) Project(_ context.Context, name string, _ bool) (*deps.Project, error) {
	return &deps.Project{
		Name:      name,
		Latest:    "1.0",
		Versions:  []string{"1.0"},
		Artifacts: map[string][]artifact.Descriptor{"1.0": r.files(name)},
	}, nil
}

func (r cycleRegistry) Release(_ context.Context, name, v string, _ bool) (*deps.Release, error) {
	return &deps.Release{Name: name, Version: v, Requires: r[name], Artifacts: r.files(name)}, nil
}

func (cycleRegistry) files(name string) []artifact.Descriptor {
	fn := name + "-1.0-py3-none-any.whl"
	return []artifact.Descriptor{artifact.FromFilename(fn, "https://files.example/"+fn, "1.0")}
}

func testPlan() *deps.Plan {
	return &deps.Plan{
		ID:    "plan-1",
		Roots: []string{"demo"},
		Entries: []deps.Entry{
			{
				Name: "demo", Display: "Demo", Version: "1.1.0", Status: deps.StatusInstall, Root: true,
				Artifact: artifact.FromFilename("demo-1.1.0-py3-none-any.whl", "https://files.example/demo.whl", "1.1.0"),
			},
			{Name: "libx", Display: "libx", Version: "2.5.0", Status: deps.StatusSatisfied, Depth: 1},
		},
		Unresolved: []deps.Unresolved{{
			Name: "ghost", Requirement: "ghost>=1", Parent: "demo",
			Err: errors.New(errors.ErrCodeNotFound, "ghost not found"),
		}},
		Conflicts: []deps.Conflict{{Name: "libx", Version: "2.5.0", Requirement: "libx<2", Parent: "demo"}},
	}
}

func TestWritePlan(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePlan(testPlan(), &buf); err != nil {
		t.Fatal(err)
	}

	var got plan
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if got.ID != "plan-1" || len(got.Packages) != 2 {
		t.Fatalf("got %+v", got)
	}
	demo, libx := got.Packages[0], got.Packages[1]
	if demo.Display != "Demo" || !demo.Root || demo.Artifact == nil || demo.Artifact.Kind != "binary" {
		t.Errorf("demo = %+v", demo)
	}
	if libx.Artifact != nil || libx.Status != "satisfied" || libx.Display != "" {
		t.Errorf("libx = %+v", libx)
	}
	if len(got.InstallOrder) != 1 || got.InstallOrder[0] != "demo" {
		t.Errorf("install_order = %v", got.InstallOrder)
	}
	if len(got.Unresolved) != 1 || got.Unresolved[0].Error == "" {
		t.Errorf("unresolved = %+v", got.Unresolved)
	}
	if len(got.Conflicts) != 1 || got.Conflicts[0].Requirement != "libx<2" {
		t.Errorf("conflicts = %+v", got.Conflicts)
	}
}

func TestWritePlanEmptyListsAreArrays(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePlan(&deps.Plan{ID: "empty"}, &buf); err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"roots", "packages", "edges", "cycles", "install_order", "unresolved", "conflicts"} {
		if _, ok := raw[key].([]any); !ok {
			t.Errorf("%s = %#v, want array", key, raw[key])
		}
	}
}

func TestWritePlanNil(t *testing.T) {
	if err := WritePlan(nil, &bytes.Buffer{}); err == nil {
		t.Error("expected error for nil plan")
	}
}

func TestExportPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	if err := ExportPlan(testPlan(), path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"install_order"`)) {
		t.Errorf("file content:\n%s", data)
	}

	if err := ExportPlan(testPlan(), filepath.Join(t.TempDir(), "missing", "plan.json")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestWritePlanGraph(t *testing.T) {
	reg := cycleRegistry{"a": {"b (>=1.0)"}, "b": {"a"}}
	env := requirement.Environment{
		Interpreter:    version.MustParse("3.11.2"),
		Platform:       "macosx_10_9_x86_64",
		SysPlatform:    "ios",
		Implementation: "cpython",
	}
	p, err := deps.NewResolver(reg, nil).Resolve(context.Background(), []deps.Request{{Name: "a"}}, deps.Options{Env: env})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WritePlan(p, &buf); err != nil {
		t.Fatal(err)
	}
	var got plan
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}

	if len(got.Edges) != 2 || got.Edges[0] != (edge{From: "a", To: "b", Requirement: "b (>=1.0)"}) {
		t.Errorf("edges = %+v", got.Edges)
	}
	if len(got.Cycles) != 1 || got.Cycles[0].From != "b" || got.Cycles[0].To != "a" {
		t.Errorf("cycles = %+v", got.Cycles)
	}
	a := got.Packages[0]
	if a.Name != "a" || !slices.Equal(a.Requires, []string{"b"}) || !slices.Equal(a.Required, []string{"b"}) {
		t.Errorf("a = %+v", a)
	}
}
