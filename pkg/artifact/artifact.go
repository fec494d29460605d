package artifact

import (
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/pipios/pkg/requirement"
	"github.com/matzehuels/pipios/pkg/specifier"
)

// Kind distinguishes binary from source artifacts.
type Kind string

const (
	KindBinary Kind = "binary"
	KindSource Kind = "source"
)

// AnyPlatform is the platform tag of pure artifacts.
const AnyPlatform = "any"

// Descriptor is one downloadable file of a release.
type Descriptor struct {
	Filename       string        // e.g. "libx-2.5.0-py3-none-any.whl"
	URL            string        // Download URL
	Kind           Kind          // Binary or source
	Platforms      []string      // Platform tags; ["any"] for pure or source artifacts
	PythonTags     []string      // Wheel python tags, e.g. ["py2", "py3"]; nil for source
	ABI            string        // Wheel ABI tag, e.g. "none", "abi3"
	RequiresPython specifier.Set // Declared interpreter range, empty for unrestricted
	Version        string        // Owning release version
	SHA256         string        // Hex digest, empty if unknown
	Size           int64
	Yanked         bool
	UploadTime     time.Time
}

// Platform returns the first platform tag, or "any".
func (d Descriptor) Platform() string {
	if len(d.Platforms) == 0 {
		return AnyPlatform
	}
	return d.Platforms[0]
}

// IsArchiveSupported reports whether the installer can unpack the file.
func (d Descriptor) IsArchiveSupported() bool {
	switch d.Kind {
	case KindBinary:
		return strings.HasSuffix(strings.ToLower(d.Filename), ".whl")
	case KindSource:
		return IsTarball(d.Filename)
	}
	return false
}

// IsTarball reports whether filename names a gzip-compressed tar archive.
func IsTarball(filename string) bool {
	lower := strings.ToLower(path.Base(filename))
	return strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz")
}

// MatchPlatform reports whether the artifact runs on platform.
func (d Descriptor) MatchPlatform(platform string) bool {
	if len(d.Platforms) == 0 {
		return true
	}
	return slices.Contains(d.Platforms, AnyPlatform) || slices.Contains(d.Platforms, platform)
}

// MatchInterpreter reports whether the artifact's python tags and
// requires-python range accept env's interpreter.
func (d Descriptor) MatchInterpreter(env requirement.Environment) bool {
	if !d.RequiresPython.Satisfies(env.Interpreter) {
		return false
	}
	if len(d.PythonTags) == 0 {
		return true
	}
	for _, tag := range d.PythonTags {
		if matchPythonTag(tag, d.ABI, env) {
			return true
		}
	}
	return false
}

// matchPythonTag checks a single wheel python tag against the interpreter.
// "py3" and "py310" apply to any implementation; "cp310" only to CPython.
// With the stable ABI, "cp37-abi3" accepts every CPython 3.x from 3.7 up.
func matchPythonTag(tag, abi string, env requirement.Environment) bool {
	major, minor := env.Interpreter.Segment(0), env.Interpreter.Segment(1)

	var impl string
	switch {
	case strings.HasPrefix(tag, "py"):
		impl = "py"
	case strings.HasPrefix(tag, "cp"):
		impl = "cp"
		if name := env.Implementation; name != "" && !strings.EqualFold(name, "cpython") {
			return false
		}
	default:
		return false
	}

	digits := tag[len(impl):]
	if digits == "" {
		return false
	}
	tagMajor, err := strconv.Atoi(digits[:1])
	if err != nil || tagMajor != major {
		return false
	}
	if len(digits) == 1 {
		return true
	}
	tagMinor, err := strconv.Atoi(digits[1:])
	if err != nil {
		return false
	}
	if impl == "cp" && abi == "abi3" {
		return tagMinor <= minor
	}
	return tagMinor == minor
}
