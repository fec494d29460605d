// Package version parses and orders package version strings.
//
// A [Version] is an ordered list of integer release segments (1.23.5) with
// optional qualifiers:
//
//   - pre-release: a letter label plus number (1.0rc1, 2.0b3, 1.4.0a0)
//   - post-release: 1.0.post2, 1.0-1
//   - development release: 1.0.dev4
//
// # Ordering
//
// Release segments compare numerically and lexicographically, with missing
// trailing segments treated as zero (1.2 == 1.2.0). For equal release segments:
//
//	1.0.dev0 < 1.0a1 < 1.0b2 < 1.0rc1 < 1.0 < 1.0.post1
//
// so a version without a pre-release tag always sorts after a tagged one.
// Two versions are equal only when both their release segments and their
// tags are equal.
//
// # Parsing
//
// [Parse] only fails when the text has no leading numeric segment. Local
// version labels (+ubuntu1) and unrecognized trailing text are ignored for
// ordering but preserved by [Version.String].
package version
