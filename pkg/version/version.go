package version

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/pipios/pkg/errors"
)

// preLabels maps accepted pre-release spellings to their canonical label.
// Canonical labels order alphabetically: a < b < rc.
var preLabels = map[string]string{
	"a":       "a",
	"alpha":   "a",
	"b":       "b",
	"beta":    "b",
	"c":       "rc",
	"rc":      "rc",
	"pre":     "rc",
	"preview": "rc",
}

var postLabels = map[string]bool{"post": true, "rev": true, "r": true}

// Version is a parsed, comparable version. The zero value is not valid;
// construct versions with [Parse].
//
// Numbers are kept as digit strings without leading zeros, so segments of
// any length compare exactly.
type Version struct {
	raw     string
	release []string
	pre     string // canonical pre-release label, empty when absent
	preNum  string
	post    string // empty when absent
	dev     string // empty when absent
}

// Parse parses text into a Version. It fails with a VERSION_PARSE error only
// when text does not start with a numeric segment (an optional "v" prefix is
// allowed).
func Parse(text string) (Version, error) {
	raw := strings.TrimSpace(text)
	s := strings.TrimPrefix(strings.ToLower(raw), "v")

	release, rest := scanRelease(s)
	if len(release) == 0 {
		return Version{}, errors.New(errors.ErrCodeVersionParse, "invalid version %q: no leading numeric segment", text)
	}

	v := Version{raw: raw, release: release}
	v.parseQualifiers(rest)
	return v, nil
}

// MustParse is like [Parse] but panics on error. Intended for tests and
// package-level constants.
func MustParse(text string) Version {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

// scanRelease consumes dot-separated integer segments from the front of s.
func scanRelease(s string) ([]string, string) {
	var release []string
	for {
		n, width := leadingDigits(s)
		if width == 0 {
			break
		}
		release = append(release, n)
		s = s[width:]
		if len(s) < 2 || s[0] != '.' || !isDigit(s[1]) {
			break
		}
		s = s[1:]
	}
	return release, s
}

func (v *Version) parseQualifiers(s string) {
	for s != "" {
		if s[0] == '+' {
			return
		}
		sep := false
		if s[0] == '.' || s[0] == '-' || s[0] == '_' {
			s, sep = s[1:], true
		}

		// "1.0-1" is an implicit post-release.
		if sep && v.post == "" && len(s) > 0 && isDigit(s[0]) {
			n, width := leadingDigits(s)
			v.post, s = n, s[width:]
			continue
		}

		label := leadingLetters(s)
		if label == "" {
			return
		}
		s = s[len(label):]
		if len(s) > 0 && (s[0] == '.' || s[0] == '-' || s[0] == '_') && len(s) > 1 && isDigit(s[1]) {
			s = s[1:]
		}
		n, width := leadingDigits(s)
		s = s[width:]

		switch {
		case preLabels[label] != "" && v.pre == "" && v.post == "" && v.dev == "":
			v.pre, v.preNum = preLabels[label], n
		case postLabels[label] && v.post == "" && v.dev == "":
			v.post = n
		case label == "dev" && v.dev == "":
			v.dev = n
		default:
			return
		}
	}
}

// leadingDigits returns the number at the front of s with leading zeros
// trimmed, and how many bytes it spans. A missing number reads as "0".
func leadingDigits(s string) (string, int) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	n := strings.TrimLeft(s[:i], "0")
	if n == "" {
		n = "0"
	}
	return n, i
}

// compareNum orders digit strings produced by [leadingDigits].
func compareNum(a, b string) int {
	if a == "" {
		a = "0"
	}
	if b == "" {
		b = "0"
	}
	return cmp.Or(cmp.Compare(len(a), len(b)), strings.Compare(a, b))
}

// atoi converts a release segment, saturating at the largest int.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

func leadingLetters(s string) string {
	i := 0
	for i < len(s) && s[i] >= 'a' && s[i] <= 'z' {
		i++
	}
	return s[:i]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// String returns the version text as it was given to [Parse].
func (v Version) String() string { return v.raw }

// Release returns the numeric release segments. Segments too large for an
// int saturate; use [Compare] or [PrefixEqual] to order them exactly.
func (v Version) Release() []int {
	out := make([]int, len(v.release))
	for i, n := range v.release {
		out[i] = atoi(n)
	}
	return out
}

// Segment returns release segment i, or 0 when the version has fewer segments.
func (v Version) Segment(i int) int {
	if i < len(v.release) {
		return atoi(v.release[i])
	}
	return 0
}

// Len returns the number of explicit release segments.
func (v Version) Len() int { return len(v.release) }

// IsPrerelease reports whether v carries a pre-release or development tag.
func (v Version) IsPrerelease() bool { return v.pre != "" || v.dev != "" }

// HasTag reports whether v carries any qualifier (pre, post or dev).
func (v Version) HasTag() bool { return v.pre != "" || v.post != "" || v.dev != "" }

// BaseEqual reports whether a and b have the same release segments, ignoring
// all qualifiers. Trailing zero segments are insignificant.
func BaseEqual(a, b Version) bool {
	return compareRelease(a.release, b.release) == 0
}

// PrefixEqual reports whether the first n release segments of a and b are
// equal. Missing segments count as zero.
func PrefixEqual(a, b Version, n int) bool {
	for i := range n {
		if compareNum(segment(a.release, i), segment(b.release, i)) != 0 {
			return false
		}
	}
	return true
}

func segment(release []string, i int) string {
	if i < len(release) {
		return release[i]
	}
	return "0"
}

// Canonical returns a normalized spelling: release segments joined with dots
// followed by normalized qualifiers (1.0rc1, 2.1.post3, 3.0.dev0).
func (v Version) Canonical() string {
	var b strings.Builder
	b.WriteString(strings.Join(v.release, "."))
	if v.pre != "" {
		b.WriteString(v.pre)
		b.WriteString(v.preNum)
	}
	if v.post != "" {
		b.WriteString(".post")
		b.WriteString(v.post)
	}
	if v.dev != "" {
		b.WriteString(".dev")
		b.WriteString(v.dev)
	}
	return b.String()
}

// Compare returns -1, 0 or +1 when a sorts before, equal to, or after b.
func Compare(a, b Version) int {
	if c := compareRelease(a.release, b.release); c != 0 {
		return c
	}
	if c := cmp.Compare(a.phase(), b.phase()); c != 0 {
		return c
	}
	if a.pre != "" {
		if c := cmp.Compare(a.pre, b.pre); c != 0 {
			return c
		}
		if c := compareNum(a.preNum, b.preNum); c != 0 {
			return c
		}
	}
	if c := compareTag(a.post, b.post, -1); c != 0 {
		return c
	}
	return compareTag(a.dev, b.dev, +1)
}

// phase orders the qualifier families for equal release segments:
// dev-only (0) < pre-release (1) < final and post (2).
func (v Version) phase() int {
	switch {
	case v.pre != "":
		return 1
	case v.dev != "" && v.post == "":
		return 0
	default:
		return 2
	}
}

// compareTag orders optional qualifier numbers. absent is the result when
// only a lacks the tag: -1 sorts a missing post tag first, +1 sorts a missing
// dev tag last.
func compareTag(a, b string, absent int) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return absent
	case b == "":
		return -absent
	}
	return compareNum(a, b)
}

func compareRelease(a, b []string) int {
	for i := range max(len(a), len(b)) {
		if c := compareNum(segment(a, i), segment(b, i)); c != 0 {
			return c
		}
	}
	return 0
}

// Compare compares v with o. See the package-level [Compare].
func (v Version) Compare(o Version) int { return Compare(v, o) }

// Equal reports whether v and o compare equal.
func (v Version) Equal(o Version) bool { return Compare(v, o) == 0 }

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return Compare(v, o) < 0 }

// Sort sorts versions in ascending order. The sort is stable, so equal
// spellings (1.0 and 1.0.0) keep their input order.
func Sort(vs []Version) {
	slices.SortStableFunc(vs, Compare)
}

// SortStrings parses and sorts version strings in ascending order.
// Strings that fail to parse are dropped.
func SortStrings(raw []string) []string {
	vs := make([]Version, 0, len(raw))
	for _, s := range raw {
		if v, err := Parse(s); err == nil {
			vs = append(vs, v)
		}
	}
	Sort(vs)
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}
