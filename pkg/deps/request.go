package deps

import (
	"strings"

	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/requirement"
	"github.com/matzehuels/pipios/pkg/specifier"
)

// Request names a root package to resolve.
type Request struct {
	Name       string
	Version    string        // Pinned version, empty for "latest"
	Extras     []string      // Feature flags enabled for the whole resolution
	Specifiers specifier.Set // Constraint used when Version is empty
}

// ParseRequest parses a user request such as "flask", "flask==2.0.1",
// "flask[async]" or "flask>=2,<3". Names that are not valid package names
// fail with an INVALID_PACKAGE error. A single non-wildcard "==" clause pins
// the version.
func ParseRequest(s string) (Request, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Request{}, errors.New(errors.ErrCodeInvalidInput, "empty package request")
	}
	name := s
	if i := strings.IndexAny(s, " \t[(<>=!~;@"); i >= 0 {
		name = s[:i]
	}
	if err := errors.ValidatePythonPackageName(name); err != nil {
		return Request{}, err
	}
	dep, err := requirement.ParseLine(s)
	if err != nil {
		return Request{}, err
	}
	if len(dep.Groups) > 0 {
		return Request{}, errors.New(errors.ErrCodeInvalidInput, "predicates are not allowed in a request: %q", s)
	}
	req := Request{Name: dep.Name, Extras: dep.Extras, Specifiers: dep.Specifiers}
	if len(dep.Specifiers) == 1 {
		spec := dep.Specifiers[0]
		if (spec.Op == specifier.OpEqual || spec.Op == specifier.OpArbitrary) && !spec.Wildcard {
			req.Version = spec.Text
			req.Specifiers = nil
		}
	}
	return req, nil
}

// String renders the request in requirement form.
func (r Request) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		b.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}
	switch {
	case r.Version != "":
		b.WriteString("==" + r.Version)
	case len(r.Specifiers) > 0:
		b.WriteString(r.Specifiers.String())
	}
	return b.String()
}
