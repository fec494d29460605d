package artifact

import (
	"strings"

	"github.com/matzehuels/pipios/pkg/errors"
)

// WheelName holds the fields encoded in a wheel filename:
//
//	{name}-{version}(-{build})?-{python}-{abi}-{platform}.whl
//
// Compressed tag sets ("py2.py3", "macosx_10_9_x86_64.macosx_11_0_arm64")
// are expanded.
type WheelName struct {
	Name       string
	Version    string
	Build      string
	PythonTags []string
	ABI        string
	Platforms  []string
}

// ParseWheelName splits a wheel filename into its tags.
func ParseWheelName(filename string) (WheelName, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".whl") {
		return WheelName{}, errors.New(errors.ErrCodeInvalidInput, "%q is not a wheel", filename)
	}
	parts := strings.Split(filename[:len(filename)-len(".whl")], "-")
	if len(parts) != 5 && len(parts) != 6 {
		return WheelName{}, errors.New(errors.ErrCodeInvalidInput, "malformed wheel filename %q", filename)
	}

	n := len(parts)
	w := WheelName{
		Name:       parts[0],
		Version:    parts[1],
		PythonTags: strings.Split(parts[n-3], "."),
		ABI:        parts[n-2],
		Platforms:  strings.Split(parts[n-1], "."),
	}
	if n == 6 {
		w.Build = parts[2]
	}
	return w, nil
}

// FromFilename builds a Descriptor from a filename and URL, inferring the
// kind and tags. Unrecognized files are returned as source artifacts that
// [Descriptor.IsArchiveSupported] rejects unless they are tarballs.
func FromFilename(filename, url, version string) Descriptor {
	d := Descriptor{
		Filename:  filename,
		URL:       url,
		Version:   version,
		Kind:      KindSource,
		Platforms: []string{AnyPlatform},
	}
	if w, err := ParseWheelName(filename); err == nil {
		d.Kind = KindBinary
		d.PythonTags = w.PythonTags
		d.ABI = w.ABI
		d.Platforms = w.Platforms
		if d.Version == "" {
			d.Version = w.Version
		}
	}
	return d
}
