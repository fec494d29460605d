package python

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/pipios/pkg/deps"
	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/requirement"
)

// PoetryLock reads poetry.lock files. Every locked package becomes a pinned
// request, so the lock's full transitive closure is installed as listed.
type PoetryLock struct{}

func (p *PoetryLock) Type() string              { return "poetry.lock" }
func (p *PoetryLock) Supports(name string) bool { return name == "poetry.lock" }

// Parse returns a pinned request per locked package. Development and
// optional packages, and packages whose markers do not hold in env, are
// skipped.
func (p *PoetryLock) Parse(path string, env requirement.Environment) ([]deps.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "read %s", path)
	}
	var lock lockFile
	if err := toml.Unmarshal(data, &lock); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
	}

	var result []deps.Request
	for _, pkg := range lock.Packages {
		if pkg.Category == "dev" || pkg.Optional {
			continue
		}
		if pkg.Markers != "" {
			groups, err := requirement.ParsePredicates(pkg.Markers)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeSpecifierParse, err, "%s: package %s", path, pkg.Name)
			}
			if !(requirement.Dependency{Groups: groups}).Applies(env) {
				continue
			}
		}
		result = append(result, deps.Request{Name: pkg.Name, Version: pkg.Version})
	}
	return result, nil
}

type lockFile struct {
	Packages []lockPackage `toml:"package"`
}

type lockPackage struct {
	Name     string `toml:"name"`
	Version  string `toml:"version"`
	Category string `toml:"category"`
	Optional bool   `toml:"optional"`
	Markers  string `toml:"markers"`
}
