// Package middleware adapts the authcache engine to net/http.
//
// [Guard] reads the Authorization bearer token, calls
// Engine.VerifyAccess and stores the resulting identity in the request
// context. [RequestMeta] attaches the client address and User-Agent so
// audit events from handlers carry them.
//
// The package makes pass/reject decisions only; it never parses tokens or
// talks to Redis itself.
package middleware
