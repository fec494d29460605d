package artifact

import (
	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/requirement"
)

// Select picks the artifact to install: the first compatible binary in
// registry order, otherwise the most recently uploaded source tarball.
// It fails with INCOMPATIBLE_ENVIRONMENT when neither exists.
func Select(artifacts []Descriptor, env requirement.Environment) (Descriptor, error) {
	for _, a := range artifacts {
		if a.Kind != KindBinary || a.Yanked || !a.IsArchiveSupported() {
			continue
		}
		if a.MatchPlatform(env.Platform) && a.MatchInterpreter(env) {
			return a, nil
		}
	}

	if src, ok := newestSource(artifacts, env); ok {
		return src, nil
	}

	name := "artifacts"
	if len(artifacts) > 0 && artifacts[0].Version != "" {
		name = "artifacts of " + artifacts[0].Version
	}
	return Descriptor{}, errors.New(errors.ErrCodeIncompatible,
		"none of %d %s match platform %s and python %s", len(artifacts), name, env.Platform, env.Interpreter)
}

// newestSource returns the latest-uploaded source tarball whose
// requires-python range admits the interpreter. Ties keep the later entry.
func newestSource(artifacts []Descriptor, env requirement.Environment) (Descriptor, bool) {
	var (
		best  Descriptor
		found bool
	)
	for _, a := range artifacts {
		if a.Kind != KindSource || a.Yanked || !a.IsArchiveSupported() {
			continue
		}
		if !a.RequiresPython.Satisfies(env.Interpreter) {
			continue
		}
		if !found || !a.UploadTime.Before(best.UploadTime) {
			best, found = a, true
		}
	}
	return best, found
}
