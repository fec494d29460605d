// Package specifier parses version-constraint clause lists such as
// ">=2.7,!=3.0.*,!=3.1.*" and tests candidate versions against them.
//
// A [Set] is conjunctive: a version satisfies it only if it satisfies every
// [Specifier]. The empty Set accepts every version.
//
// Supported operators:
//
//	==  !=  <  <=  >  >=  ~=  ===
//
// == and != accept a trailing ".*" wildcard segment (==3.0.* matches 3.0.5).
// ~=V is the compatible-release operator: for V = s0.s1...sn it is equivalent
// to ">=V, ==s0.s1...s(n-1).*" and needs at least two release segments.
package specifier

import (
	"strings"

	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/version"
)

// Operator is a comparison operator in a version constraint clause.
type Operator string

// Supported operators.
const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpCompatible   Operator = "~="
	OpArbitrary    Operator = "==="
)

var operators = map[Operator]bool{
	OpEqual: true, OpNotEqual: true, OpLess: true, OpLessEqual: true,
	OpGreater: true, OpGreaterEqual: true, OpCompatible: true, OpArbitrary: true,
}

// Specifier is a single (operator, version) clause.
type Specifier struct {
	Op       Operator
	Version  version.Version // unset for === clauses that are not versions
	Text     string          // version text as written, without the operator and wildcard
	Wildcard bool            // trailing ".*" on == / !=
}

// Parse parses a single clause such as ">=1.20" or "!=3.0.*".
func Parse(clause string) (Specifier, error) {
	s := strings.TrimSpace(clause)
	i := strings.IndexFunc(s, func(r rune) bool { return !strings.ContainsRune("<>=!~", r) })
	if i < 0 {
		return Specifier{}, errors.New(errors.ErrCodeSpecifierParse, "clause %q has no version", clause)
	}
	op := Operator(s[:i])
	text := strings.TrimSpace(s[i:])

	if op == "" {
		return Specifier{}, errors.New(errors.ErrCodeSpecifierParse, "clause %q has no operator", clause)
	}
	if !operators[op] {
		return Specifier{}, errors.New(errors.ErrCodeSpecifierParse, "unknown operator %q in %q", op, clause)
	}
	if text == "" {
		return Specifier{}, errors.New(errors.ErrCodeSpecifierParse, "clause %q has no version", clause)
	}

	spec := Specifier{Op: op, Text: text}
	if op == OpArbitrary {
		spec.Version, _ = version.Parse(text)
		return spec, nil
	}

	if strings.HasSuffix(text, ".*") {
		if op != OpEqual && op != OpNotEqual {
			return Specifier{}, errors.New(errors.ErrCodeSpecifierParse, "wildcard not allowed with %s in %q", op, clause)
		}
		spec.Wildcard = true
		spec.Text = strings.TrimSuffix(text, ".*")
	}
	if strings.Contains(spec.Text, "*") {
		return Specifier{}, errors.New(errors.ErrCodeSpecifierParse, "misplaced wildcard in %q", clause)
	}

	v, err := version.Parse(spec.Text)
	if err != nil {
		return Specifier{}, errors.Wrap(errors.ErrCodeSpecifierParse, err, "clause %q", clause)
	}
	if op == OpCompatible && v.Len() < 2 {
		return Specifier{}, errors.New(errors.ErrCodeSpecifierParse, "~= needs at least two release segments in %q", clause)
	}
	spec.Version = v
	return spec, nil
}

// Satisfies reports whether v satisfies the clause.
func (s Specifier) Satisfies(v version.Version) bool {
	switch s.Op {
	case OpEqual:
		if s.Wildcard {
			return version.PrefixEqual(v, s.Version, s.Version.Len())
		}
		return v.Equal(s.Version)
	case OpNotEqual:
		if s.Wildcard {
			return !version.PrefixEqual(v, s.Version, s.Version.Len())
		}
		return !v.Equal(s.Version)
	case OpLess:
		// <3.0 excludes 3.0rc1 unless the bound itself is a pre-release.
		if v.IsPrerelease() && !s.Version.IsPrerelease() && version.BaseEqual(v, s.Version) {
			return false
		}
		return v.Less(s.Version)
	case OpLessEqual:
		return v.Compare(s.Version) <= 0
	case OpGreater:
		// >1.0 excludes 1.0.post1 unless the bound itself has a tag.
		if !s.Version.HasTag() && version.BaseEqual(v, s.Version) {
			return false
		}
		return v.Compare(s.Version) > 0
	case OpGreaterEqual:
		return v.Compare(s.Version) >= 0
	case OpCompatible:
		return v.Compare(s.Version) >= 0 && version.PrefixEqual(v, s.Version, s.Version.Len()-1)
	case OpArbitrary:
		return strings.EqualFold(v.String(), s.Text)
	}
	return false
}

// String returns the clause in canonical form, e.g. ">=2.7" or "!=3.0.*".
func (s Specifier) String() string {
	if s.Wildcard {
		return string(s.Op) + s.Text + ".*"
	}
	return string(s.Op) + s.Text
}

// Set is an ordered, conjunctive list of clauses.
type Set []Specifier

// ParseSet parses a comma-separated clause list. Surrounding parentheses are
// accepted, so "(>=2.0,<3.0)" and ">=2.0, <3.0" are equivalent. Empty input
// yields an empty Set.
func ParseSet(text string) (Set, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" {
		return nil, nil
	}

	clauses := strings.Split(s, ",")
	set := make(Set, 0, len(clauses))
	for _, c := range clauses {
		spec, err := Parse(c)
		if err != nil {
			return nil, err
		}
		set = append(set, spec)
	}
	return set, nil
}

// MustParseSet is like [ParseSet] but panics on error.
func MustParseSet(text string) Set {
	s, err := ParseSet(text)
	if err != nil {
		panic(err)
	}
	return s
}

// Satisfies reports whether v satisfies every clause in the set.
func (s Set) Satisfies(v version.Version) bool {
	for _, spec := range s {
		if !spec.Satisfies(v) {
			return false
		}
	}
	return true
}

// SatisfiesString parses raw and tests it against the set. Unparseable
// versions never satisfy a non-empty set.
func (s Set) SatisfiesString(raw string) bool {
	v, err := version.Parse(raw)
	if err != nil {
		return len(s) == 0
	}
	return s.Satisfies(v)
}

// AllowsPrereleases reports whether any clause names a pre-release version,
// which opts the set into selecting pre-releases. An "===" clause whose text
// is not a version names nothing.
func (s Set) AllowsPrereleases() bool {
	for _, spec := range s {
		switch spec.Op {
		case OpNotEqual:
		case OpArbitrary:
			if v, err := version.Parse(spec.Text); err == nil && v.IsPrerelease() {
				return true
			}
		default:
			if spec.Version.IsPrerelease() {
				return true
			}
		}
	}
	return false
}

// String returns the canonical comma-joined form of the set.
func (s Set) String() string {
	parts := make([]string, len(s))
	for i, spec := range s {
		parts[i] = spec.String()
	}
	return strings.Join(parts, ",")
}
