package deps

import (
	"slices"

	"github.com/matzehuels/pipios/pkg/artifact"
	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/requirement"
	"github.com/matzehuels/pipios/pkg/specifier"
	"github.com/matzehuels/pipios/pkg/version"
)

type candidate struct {
	raw string
	v   version.Version
}

// SelectVersion picks the version of proj to install under set.
//
// With an empty set the registry's latest version is used. Otherwise the
// operator of the first clause decides: ==, <=, ~= and === prefer the version
// they name, < takes the release immediately preceding the one it names, and
// anything else takes the newest satisfying version. Preferred versions
// without a compatible artifact fall back to the newest satisfying version
// that has one. Pre-releases are skipped unless allowPre is set, the set
// names one, or no final release qualifies.
func SelectVersion(proj *Project, set specifier.Set, env requirement.Environment, allowPre bool) (string, error) {
	cands := parseCandidates(proj.Versions)
	if len(cands) == 0 {
		return "", errors.New(errors.ErrCodeNotFound, "%s has no releases", proj.Name)
	}
	compatible := func(raw string) bool {
		_, err := artifact.Select(proj.Artifacts[raw], env)
		return err == nil
	}
	allowPre = allowPre || set.AllowsPrereleases()

	if len(set) == 0 && proj.Latest != "" && compatible(proj.Latest) {
		return proj.Latest, nil
	}
	if raw, ok := preferred(cands, set, allowPre); ok && compatible(raw) {
		return raw, nil
	}

	matched := false
	for pass := 0; pass < 2; pass++ {
		finalsOnly := pass == 0 && !allowPre
		for _, c := range slices.Backward(cands) {
			if !set.Satisfies(c.v) || (finalsOnly && c.v.IsPrerelease()) {
				continue
			}
			matched = true
			if compatible(c.raw) {
				return c.raw, nil
			}
		}
		if allowPre {
			break
		}
	}

	if !matched {
		return "", errors.New(errors.ErrCodeNotFound, "no version of %s satisfies %q", proj.Name, set.String())
	}
	return "", errors.New(errors.ErrCodeIncompatible,
		"no version of %s satisfying %q has an artifact for platform %s and python %s",
		proj.Name, set.String(), env.Platform, env.Interpreter)
}

// preferred applies the operator-specific rule of the first clause.
func preferred(cands []candidate, set specifier.Set, allowPre bool) (string, bool) {
	if len(set) == 0 {
		return "", false
	}
	first := set[0]
	switch first.Op {
	case specifier.OpArbitrary:
		for _, c := range cands {
			if c.raw == first.Text {
				return c.raw, true
			}
		}
	case specifier.OpEqual, specifier.OpLessEqual, specifier.OpCompatible:
		if first.Wildcard {
			return "", false
		}
		for _, c := range slices.Backward(cands) {
			if c.v.Equal(first.Version) && set.Satisfies(c.v) {
				return c.raw, true
			}
		}
	case specifier.OpLess:
		for _, c := range slices.Backward(cands) {
			if !c.v.Less(first.Version) || (!allowPre && c.v.IsPrerelease()) {
				continue
			}
			if set.Satisfies(c.v) {
				return c.raw, true
			}
			return "", false
		}
	}
	return "", false
}

// parseCandidates parses and sorts versions oldest first, dropping
// unparseable ones.
func parseCandidates(raw []string) []candidate {
	out := make([]candidate, 0, len(raw))
	for _, r := range raw {
		v, err := version.Parse(r)
		if err != nil {
			continue
		}
		out = append(out, candidate{raw: r, v: v})
	}
	slices.SortStableFunc(out, func(a, b candidate) int { return version.Compare(a.v, b.v) })
	return out
}
