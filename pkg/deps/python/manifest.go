package python

import (
	"path/filepath"

	"github.com/matzehuels/pipios/pkg/deps"
	"github.com/matzehuels/pipios/pkg/requirement"
)

// Manifest reads root requests from a dependency file.
type Manifest interface {
	// Type returns the file format, e.g. "requirements.txt".
	Type() string
	// Supports reports whether a file with this base name is handled.
	Supports(name string) bool
	// Parse reads the requests that apply in env.
	Parse(path string, env requirement.Environment) ([]deps.Request, error)
}

// Manifests returns every supported manifest reader.
func Manifests() []Manifest {
	return []Manifest{&Requirements{}, &PoetryLock{}}
}

// ReadManifest parses path with the reader matching its base name. Unknown
// names are read as requirements files.
func ReadManifest(path string, env requirement.Environment) ([]deps.Request, error) {
	base := filepath.Base(path)
	for _, m := range Manifests() {
		if m.Supports(base) {
			return m.Parse(path, env)
		}
	}
	return (&Requirements{}).Parse(path, env)
}
