// Package integrations provides the HTTP client shared by registry clients.
//
// # Overview
//
// Registry-specific clients live in subpackages:
//
//   - [pypi]: Python Package Index JSON API
//
// # Client Pattern
//
// Registry clients embed [Client] and follow a consistent pattern:
//
//	client := pypi.NewClient(cache.NewMemoryCache(), time.Hour)
//	project, err := client.FetchProject(ctx, "requests", "", false)
//
// [Client] handles:
//   - HTTP requests with per-request timeout
//   - retry with exponential backoff for transient failures (transport errors, 429, 5xx)
//   - in-process response caching through [cache.Cache]
//   - collapsing concurrent fetches of the same key into one request
//
// # Errors
//
// Every failure carries a code from the errors package and wraps one of the
// sentinels below, so both styles of check work:
//
//	errors.Is(err, integrations.ErrNotFound)         // stdlib
//	perrors.Is(err, perrors.ErrCodeNotFound)          // coded
//
// A 404 is definitive and never retried.
//
// [pypi]: github.com/matzehuels/pipios/pkg/integrations/pypi
// [cache.Cache]: github.com/matzehuels/pipios/pkg/cache.Cache
package integrations
