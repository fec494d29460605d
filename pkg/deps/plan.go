package deps

import (
	"slices"

	"github.com/matzehuels/pipios/pkg/artifact"
	"github.com/matzehuels/pipios/pkg/dag"
	"github.com/matzehuels/pipios/pkg/requirement"
)

// Status describes what the installer must do with a plan entry.
type Status string

const (
	StatusInstall   Status = "install"   // Download and extract Artifact
	StatusSatisfied Status = "satisfied" // Already installed; left untouched
)

// Entry is one resolved package in a [Plan].
type Entry struct {
	Name     string              // Canonical name
	Display  string              // Name as registered or requested
	Version  string              // Selected (or installed) version
	Summary  string              // Release summary, when fetched
	Status   Status              // Install or already satisfied
	Artifact artifact.Descriptor // Selected artifact; zero for satisfied entries
	Root     bool                // Requested directly
	Depth    int                 // Distance from the nearest root
	Extras   []string            // Feature flags named on the incoming requirement
}

// Unresolved records a dependency branch that was abandoned.
type Unresolved struct {
	Name        string // Canonical name, or the raw line when it could not be parsed
	Requirement string // Dependency line that led here
	Parent      string // Canonical name of the declaring package
	Err         error
}

// Conflict records a requirement the chosen version does not satisfy.
// Resolution is greedy: the first branch to reach a name decides its version.
type Conflict struct {
	Name        string // Canonical name
	Version     string // Version in the plan
	Requirement string // Unsatisfied dependency line
	Parent      string // Canonical name of the declaring package
}

// Plan is the result of resolution: every reachable package, the version
// chosen for it, and the artifact to install.
type Plan struct {
	ID         string // Correlates resolve and install log lines
	Roots      []string
	Entries    []Entry
	Unresolved []Unresolved
	Conflicts  []Conflict

	graph *dag.DAG
}

// Entry returns the entry for name (any spelling).
func (p *Plan) Entry(name string) (Entry, bool) {
	name = requirement.CanonicalName(name)
	for _, e := range p.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Graph returns the dependency graph of the plan. Nodes are canonical
// names; an edge points from a package to one of its dependencies.
func (p *Plan) Graph() *dag.DAG { return p.graph }

// Dependencies returns the canonical names name depends on in the plan.
func (p *Plan) Dependencies(name string) []string {
	if p.graph == nil {
		return nil
	}
	return slices.Clone(p.graph.Children(requirement.CanonicalName(name)))
}

// Dependents returns the canonical names in the plan that depend on name.
func (p *Plan) Dependents(name string) []string {
	if p.graph == nil {
		return nil
	}
	return slices.Clone(p.graph.Parents(requirement.CanonicalName(name)))
}

// Cycles returns one closing edge per circular dependency in the plan.
// Cycles do not block installation; they only make the order among their
// members arbitrary.
func (p *Plan) Cycles() []dag.Edge {
	if p.graph == nil || p.graph.Validate() == nil {
		return nil
	}
	return dag.BreakCycles(p.graph.Clone())
}

// InstallOrder returns the entries that need installing, dependencies
// before their dependents. Members of a cycle are ordered arbitrarily but
// deterministically.
func (p *Plan) InstallOrder() []Entry {
	if p.graph == nil {
		return p.pending(p.Entries)
	}
	byName := make(map[string]Entry, len(p.Entries))
	for _, e := range p.Entries {
		byName[e.Name] = e
	}
	ordered := make([]Entry, 0, len(p.Entries))
	for _, id := range dag.DependencyOrder(p.graph) {
		if e, ok := byName[id]; ok {
			ordered = append(ordered, e)
		}
	}
	return p.pending(ordered)
}

// Satisfied returns the entries already present in the target directory.
func (p *Plan) Satisfied() []Entry {
	return slices.DeleteFunc(slices.Clone(p.Entries), func(e Entry) bool {
		return e.Status != StatusSatisfied
	})
}

func (p *Plan) pending(entries []Entry) []Entry {
	return slices.DeleteFunc(slices.Clone(entries), func(e Entry) bool {
		return e.Status != StatusInstall
	})
}
