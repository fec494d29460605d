package requirement

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/matzehuels/pipios/pkg/version"
)

// Environment describes the runtime that packages are resolved for.
// It is an immutable value; use [Environment.WithFlags] to derive a copy.
type Environment struct {
	Interpreter    version.Version // Full interpreter version, e.g. 3.10.4
	Platform       string          // Binary artifact platform tag, e.g. "macosx_10_9_x86_64"
	SysPlatform    string          // sys.platform value, e.g. "ios", "darwin", "linux", "win32"
	Machine        string          // platform_machine value, e.g. "arm64"
	Implementation string          // Interpreter implementation name, e.g. "cpython"
	Flags          []string        // Enabled feature flags (extras), canonical names
}

// WithFlags returns a copy of e with flags added to the enabled set.
func (e Environment) WithFlags(flags ...string) Environment {
	out := e
	out.Flags = slices.Clone(e.Flags)
	for _, f := range flags {
		f = CanonicalName(f)
		if f != "" && !slices.Contains(out.Flags, f) {
			out.Flags = append(out.Flags, f)
		}
	}
	return out
}

// HasFlag reports whether flag is enabled.
func (e Environment) HasFlag(flag string) bool {
	return slices.Contains(e.Flags, CanonicalName(flag))
}

// PythonVersion returns the "major.minor" interpreter version.
func (e Environment) PythonVersion() string {
	return fmt.Sprintf("%d.%d", e.Interpreter.Segment(0), e.Interpreter.Segment(1))
}

// value returns the environment value for a non-feature predicate key.
func (e Environment) value(key string) string {
	switch key {
	case KeyPythonVersion:
		return e.PythonVersion()
	case KeyPythonFullVersion, KeyImplementationVersion:
		return e.Interpreter.String()
	case KeySysPlatform:
		return e.SysPlatform
	case KeyPlatformSystem:
		return platformSystem(e.SysPlatform)
	case KeyOSName:
		if e.SysPlatform == "win32" || e.SysPlatform == "cygwin" {
			return "nt"
		}
		return "posix"
	case KeyPlatformMachine:
		return e.Machine
	case KeyImplementationName:
		return strings.ToLower(e.implementation())
	case KeyPythonImplementation:
		switch strings.ToLower(e.implementation()) {
		case "cpython":
			return "CPython"
		case "pypy":
			return "PyPy"
		}
		return e.implementation()
	}
	return ""
}

func (e Environment) implementation() string {
	if e.Implementation == "" {
		return "cpython"
	}
	return e.Implementation
}

func platformSystem(sys string) string {
	switch {
	case strings.HasPrefix(sys, "linux"):
		return "Linux"
	case sys == "darwin":
		return "Darwin"
	case sys == "win32", sys == "cygwin":
		return "Windows"
	case sys == "ios":
		return "iOS"
	case sys == "android":
		return "Android"
	}
	return sys
}

var separatorRuns = regexp.MustCompile(`[-_.]+`)

// CanonicalName normalizes a package or extra name for comparison:
// lowercase, with runs of "-", "_" and "." collapsed to a single "-".
func CanonicalName(name string) string {
	return separatorRuns.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// FilesystemName normalizes a package name the way installed metadata
// directories spell it: lowercase with separators mapped to "_".
func FilesystemName(name string) string {
	return separatorRuns.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
}
