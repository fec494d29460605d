// Package pypi provides an HTTP client for the Python Package Index JSON API.
//
// # Overview
//
// This package fetches release metadata from PyPI (https://pypi.org) or any
// index that serves the same JSON API:
//
//   - GET {base}/{name}/json: every release and its files ([Client.FetchProject])
//   - GET {base}/{name}/{version}/json: one release with its dependency
//     lines ([Client.FetchRelease])
//
// # Usage
//
//	client := pypi.NewClient(cache.NewMemoryCache(), "", time.Hour)
//
//	project, err := client.FetchProject(ctx, "requests", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(project.Name, project.Versions)
//
//	release, err := client.FetchRelease(ctx, "requests", "2.31.0", false)
//	fmt.Println(release.Requires)   // ["charset-normalizer (<4,>=2)", ...]
//	fmt.Println(release.Artifacts)  // wheels and sdists, registry order
//
// # Caching
//
// Responses are cached in-process only, so a project requested by several
// parents during one resolution is fetched once. Pass refresh=true to bypass
// the cache.
//
// # Dependency Lines
//
// Unlike a crawler that only needs names, the installer needs the full
// dependency grammar, so requires_dist lines are returned verbatim. Markers
// and extras are evaluated by the requirement package.
package pypi
