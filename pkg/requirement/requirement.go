package requirement

import (
	"regexp"
	"strings"

	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/specifier"
)

// Dependency is a parsed dependency line.
type Dependency struct {
	Name       string           // Project name as written
	Extras     []string         // Canonical names of requested extras
	Specifiers specifier.Set    // Version constraint, empty for "any"
	Groups     []PredicateGroup // Disjunction of conjunctions, empty for unconditional
	Raw        string           // Original line
}

// Canonical returns the canonical project name.
func (d Dependency) Canonical() string { return CanonicalName(d.Name) }

var namePattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?`)

// ParseLine parses a dependency line. Accepted forms:
//
//	name
//	name (>=1.0,<2.0)
//	name[extra1,extra2] >=1.0 ; python_version < "3.10"
//	name (>=1.0) ; sys_platform == "ios", extra == "tests"
func ParseLine(line string) (Dependency, error) {
	dep := Dependency{Raw: line}
	body, markers, hasMarkers := strings.Cut(line, ";")
	body = strings.TrimSpace(body)

	dep.Name = namePattern.FindString(body)
	if dep.Name == "" {
		return Dependency{}, errors.New(errors.ErrCodeSpecifierParse, "no package name in %q", line)
	}
	rest := strings.TrimSpace(body[len(dep.Name):])

	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return Dependency{}, errors.New(errors.ErrCodeSpecifierParse, "unterminated extras in %q", line)
		}
		for _, e := range strings.Split(rest[1:end], ",") {
			if e = strings.TrimSpace(e); e != "" {
				dep.Extras = append(dep.Extras, CanonicalName(e))
			}
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	if strings.HasPrefix(rest, "@") {
		return Dependency{}, errors.New(errors.ErrCodeSpecifierParse, "direct references are not supported: %q", line)
	}

	set, err := specifier.ParseSet(rest)
	if err != nil {
		return Dependency{}, errors.Wrap(errors.ErrCodeSpecifierParse, err, "dependency %q", line)
	}
	dep.Specifiers = set

	if hasMarkers {
		groups, err := ParsePredicates(markers)
		if err != nil {
			return Dependency{}, err
		}
		dep.Groups = groups
	}
	return dep, nil
}

// MustParseLine is like [ParseLine] but panics on error.
func MustParseLine(line string) Dependency {
	d, err := ParseLine(line)
	if err != nil {
		panic(err)
	}
	return d
}

// Applies reports whether the dependency is required in env: true when no
// predicate groups are declared, otherwise true if any group holds.
func (d Dependency) Applies(env Environment) bool {
	if len(d.Groups) == 0 {
		return true
	}
	for _, g := range d.Groups {
		if g.Evaluate(env) {
			return true
		}
	}
	return false
}

// String renders the dependency without its predicates.
func (d Dependency) String() string {
	var b strings.Builder
	b.WriteString(d.Name)
	if len(d.Extras) > 0 {
		b.WriteString("[" + strings.Join(d.Extras, ",") + "]")
	}
	if len(d.Specifiers) > 0 {
		b.WriteString(" (" + d.Specifiers.String() + ")")
	}
	return b.String()
}
