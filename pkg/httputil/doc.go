// Package httputil provides retry helpers for registry and download requests.
//
// # Retry
//
// [Retry] re-runs an operation on transient failures only. Callers mark an
// error as transient by wrapping it in [RetryableError]:
//
//   - transport errors and timeouts
//   - 5xx server errors
//   - 429 rate limit responses
//
// Definitive answers such as 404 are returned immediately without retry.
// The delay doubles after every failed attempt:
//
//	policy := httputil.Policy{Attempts: 3, Delay: time.Second}
//	err := policy.Do(ctx, func() error {
//	    return fetch(ctx)
//	})
//
// Registry clients start from [DefaultPolicy] (3 attempts, 1 second).
package httputil
