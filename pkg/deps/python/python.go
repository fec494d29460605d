// Package python connects the resolver to PyPI and reads Python manifest
// files into root requests.
package python

import (
	"context"

	"github.com/matzehuels/pipios/pkg/artifact"
	"github.com/matzehuels/pipios/pkg/deps"
	"github.com/matzehuels/pipios/pkg/integrations/pypi"
)

// Registry implements [deps.Registry] on top of the PyPI JSON API.
type Registry struct {
	client *pypi.Client
}

// NewRegistry wraps a PyPI client.
func NewRegistry(c *pypi.Client) *Registry {
	return &Registry{client: c}
}

// Project fetches the release history of name.
func (r *Registry) Project(ctx context.Context, name string, refresh bool) (*deps.Project, error) {
	p, err := r.client.FetchProject(ctx, name, refresh)
	if err != nil {
		return nil, err
	}
	out := &deps.Project{
		Name:      p.Name,
		Latest:    p.Latest,
		Versions:  p.Versions,
		Artifacts: make(map[string][]artifact.Descriptor, len(p.Versions)),
	}
	for _, v := range p.Versions {
		out.Artifacts[v] = p.Artifacts(v)
	}
	return out, nil
}

// Release fetches one version of name with its dependency lines.
func (r *Registry) Release(ctx context.Context, name, version string, refresh bool) (*deps.Release, error) {
	rel, err := r.client.FetchRelease(ctx, name, version, refresh)
	if err != nil {
		return nil, err
	}
	return &deps.Release{
		Name:      rel.Name,
		Version:   rel.Version,
		Summary:   rel.Summary,
		Requires:  rel.Requires,
		Artifacts: rel.Artifacts,
	}, nil
}
