// Package authcache is a Redis-backed session cache for user authentication.
// It issues short-lived access tokens (a signed JWT sealed in a JWE) and
// longer-lived refresh tokens, keeps one session hash per login carrying a
// sealed profile blob, and enforces a per-session request ceiling that
// revokes the session once exceeded.
//
// Engine methods are safe for concurrent use after [Builder.Build].
//
// # Architecture boundaries
//
// authcache is the public surface: [Engine], [Builder], [Config] and value
// types such as [Session], [Identity] and [MetricsSnapshot]. Key layout and
// the atomic Lua scripts live in package cache; token minting in jwt; the
// profile blob codec and durable store adapters in profile; flow
// orchestration, audit dispatch and the retry policy under internal/.
//
// # Issuance
//
// Every issuing call (Signup, Login, OAuthCallback, ConsumeMagicLink) mints
// tokens first, then persists the refresh record, rate counter, email index
// and session hash in one script. When persistence or the durable
// write-through fails the session is revoked and the error returned, so a
// half-written session is never left behind.
//
// # Performance contract
//
// VerifyAccess makes no Redis round trip unless Session.StrictAccess is
// set. Refresh makes one read and one script call; rotation adds one more.
package authcache
