// Package artifact describes downloadable distribution files and picks the
// one to install for an [requirement.Environment].
//
// A [Descriptor] is either a binary archive (a wheel, installed by plain
// extraction) or a source archive (a gzip-compressed tarball, extracted and
// normalized but never built). [Select] prefers the first compatible binary in
// registry order and falls back to the most recent source archive:
//
//	art, err := artifact.Select(artifacts, env)
//	if errors.Is(err, errors.ErrCodeIncompatible) {
//	    // nothing installable for this platform/interpreter
//	}
//
// Binary compatibility means all of:
//   - a platform tag equal to env.Platform or "any"
//   - a python tag usable by env.Interpreter (py3, py310, cp310, cp37-abi3, ...)
//   - a requires-python range satisfied by env.Interpreter
//   - not yanked
package artifact
