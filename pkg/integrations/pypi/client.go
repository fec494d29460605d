package pypi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/pipios/pkg/artifact"
	"github.com/matzehuels/pipios/pkg/cache"
	perrors "github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/integrations"
	"github.com/matzehuels/pipios/pkg/requirement"
	"github.com/matzehuels/pipios/pkg/specifier"
	"github.com/matzehuels/pipios/pkg/version"
)

// DefaultBaseURL is the public PyPI JSON API root.
const DefaultBaseURL = "https://pypi.org/pypi"

// Project holds the release history of a PyPI project.
//
// Versions are ordered oldest to newest by version semantics; releases whose
// version string cannot be parsed are dropped. Requires is only populated for
// the latest release, since the project endpoint does not report the others.
type Project struct {
	Name     string   // Display name as registered (e.g., "Flask")
	Summary  string   // Short description of the latest release
	Latest   string   // Version the registry reports as current
	Versions []string // All parseable versions, oldest first
	Requires []string // Dependency lines of Latest

	files map[string][]apiFile
}

// Artifacts returns the downloadable files of v in registry order.
// It returns nil for unknown versions.
func (p *Project) Artifacts(v string) []artifact.Descriptor {
	return toDescriptors(v, p.files[v])
}

// HasVersion reports whether v is a known release.
func (p *Project) HasVersion(v string) bool {
	_, ok := p.files[v]
	return ok
}

// Release holds one version of a project.
type Release struct {
	Name           string
	Version        string
	Summary        string
	RequiresPython string
	Requires       []string              // Raw dependency lines, unfiltered
	Artifacts      []artifact.Descriptor // Registry order
}

// Client provides access to the PyPI JSON API.
// It handles HTTP requests with caching and automatic retries.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a PyPI client against baseURL with the given cache
// backend. An empty baseURL uses [DefaultBaseURL]. Options are passed to
// [integrations.NewClient].
func NewClient(backend cache.Cache, baseURL string, cacheTTL time.Duration, opts ...integrations.Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		Client:  integrations.NewClient(backend, "pypi:", cacheTTL, map[string]string{"Accept": "application/json"}, opts...),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchProject retrieves the release history of a project.
//
// The name is normalized automatically. If refresh is true, the in-process
// cache is bypassed.
//
// Returns:
//   - a NOT_FOUND error wrapping [integrations.ErrNotFound] if the project doesn't exist
//   - a NETWORK or NETWORK_TRANSIENT error for HTTP failures
func (c *Client) FetchProject(ctx context.Context, name string, refresh bool) (*Project, error) {
	name = requirement.CanonicalName(name)
	if name == "" {
		return nil, perrors.New(perrors.ErrCodeInvalidPackage, "empty package name")
	}

	var data apiResponse
	err := c.Cached(ctx, name, refresh, &data, func() error {
		return c.fetch(ctx, fmt.Sprintf("%s/%s/json", c.baseURL, name), &data)
	})
	if err != nil {
		return nil, wrapNotFound(err, "pypi package %s", name)
	}

	p := &Project{
		Name:     data.Info.Name,
		Summary:  data.Info.Summary,
		Latest:   data.Info.Version,
		Requires: data.Info.RequiresDist,
		files:    data.Releases,
	}
	raw := make([]string, 0, len(data.Releases))
	for v := range data.Releases {
		raw = append(raw, v)
	}
	p.Versions = version.SortStrings(raw)
	return p, nil
}

// FetchRelease retrieves a single version of a project, including its
// dependency lines. An absent project or version is a NOT_FOUND error.
func (c *Client) FetchRelease(ctx context.Context, name, v string, refresh bool) (*Release, error) {
	name = requirement.CanonicalName(name)
	if name == "" {
		return nil, perrors.New(perrors.ErrCodeInvalidPackage, "empty package name")
	}
	if v == "" {
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "empty version for %s", name)
	}

	var data apiResponse
	err := c.Cached(ctx, name+"@"+v, refresh, &data, func() error {
		return c.fetch(ctx, fmt.Sprintf("%s/%s/%s/json", c.baseURL, name, v), &data)
	})
	if err != nil {
		return nil, wrapNotFound(err, "pypi release %s==%s", name, v)
	}

	return &Release{
		Name:           data.Info.Name,
		Version:        data.Info.Version,
		Summary:        data.Info.Summary,
		RequiresPython: data.Info.RequiresPython,
		Requires:       data.Info.RequiresDist,
		Artifacts:      toDescriptors(data.Info.Version, data.URLs),
	}, nil
}

func (c *Client) fetch(ctx context.Context, url string, data *apiResponse) error {
	*data = apiResponse{}
	return c.Get(ctx, url, data)
}

func wrapNotFound(err error, format string, args ...any) error {
	if errors.Is(err, integrations.ErrNotFound) {
		return perrors.Wrap(perrors.ErrCodeNotFound, err, format, args...)
	}
	return err
}

type apiResponse struct {
	Info     apiInfo              `json:"info"`
	Releases map[string][]apiFile `json:"releases"`
	URLs     []apiFile            `json:"urls"`
}

type apiInfo struct {
	Name           string   `json:"name"`
	Version        string   `json:"version"`
	Summary        string   `json:"summary"`
	RequiresDist   []string `json:"requires_dist"`
	RequiresPython string   `json:"requires_python"`
}

type apiFile struct {
	Filename       string            `json:"filename"`
	URL            string            `json:"url"`
	PackageType    string            `json:"packagetype"`
	PythonVersion  string            `json:"python_version"`
	RequiresPython *string           `json:"requires_python"`
	Digests        map[string]string `json:"digests"`
	Size           int64             `json:"size"`
	Yanked         bool              `json:"yanked"`
	UploadTime     string            `json:"upload_time_iso_8601"`
}

func toDescriptors(v string, files []apiFile) []artifact.Descriptor {
	if len(files) == 0 {
		return nil
	}
	out := make([]artifact.Descriptor, 0, len(files))
	for _, f := range files {
		d := artifact.FromFilename(f.Filename, f.URL, v)
		switch f.PackageType {
		case "bdist_wheel":
			d.Kind = artifact.KindBinary
		case "sdist":
			d.Kind = artifact.KindSource
		default:
			// eggs, wininst and friends are never installable
			d.Kind = artifact.Kind(f.PackageType)
		}
		if f.RequiresPython != nil {
			// Malformed ranges in registry data are treated as unrestricted.
			d.RequiresPython, _ = specifier.ParseSet(*f.RequiresPython)
		}
		d.SHA256 = f.Digests["sha256"]
		d.Size = f.Size
		d.Yanked = f.Yanked
		if t, err := time.Parse(time.RFC3339, f.UploadTime); err == nil {
			d.UploadTime = t
		}
		out = append(out, d)
	}
	return out
}
