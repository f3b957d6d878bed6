// Package internal contains helpers that are private to authcache: snowflake
// session and token ids, magic link token generation and request
// fingerprints.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: issue, refresh and logout orchestration over the cache
//   - metrics: lock-free counters and latency histograms
//   - retry: bounded exponential retry policy for store calls
//   - seal: authenticated encryption for profile blobs and magic links
//
// # What this package must NOT do
//
//   - Export types that appear in the public authcache API.
//   - Be imported by any package outside the authcache module.
package internal
