// Package cache provides in-process byte caches for registry responses.
//
// Entries live only as long as the process: resolution re-fetches registry
// metadata on every run, and a cache only collapses repeated lookups of the
// same project within one run (a package requested by several parents).
//
// Two implementations are provided:
//   - [MemoryCache]: map-backed with per-entry TTL, safe for concurrent use
//   - [NullCache]: never stores anything
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values by key.
type Cache interface {
	// Get returns the value for key. The bool is false on a miss or expiry.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}
