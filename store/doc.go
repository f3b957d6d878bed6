// Package store owns the Redis connection pool used by the cache engine.
//
// [Open] is called once at startup and [Client.Close] once at shutdown. The
// pool is never rebuilt in between; a failing health check is logged and
// reported through [Client.Healthy] but does not recreate the client.
//
// # What this package must NOT do
//
//   - Retry commands. Retry and backoff live in internal/retry.
//   - Hold process-wide state. Callers inject the *Client they opened.
package store
