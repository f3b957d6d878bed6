// Package cache is the Redis-backed session and token cache.
//
// One issuance links three pieces of state: the refresh record re:{jti}, the
// admission counter ra:{session_id} and the session hash s:{session_id}. An
// email index keyed by an 8-hex-character hash of the address points back at
// the session. [Writer.CreateUserSession] writes all of them in one script.
//
// # Components
//
//   - [Reader]: profile, email, inactive scan, magic link and refresh lookups.
//   - [Writer]: refresh record, admission check, compound issuance, magic link.
//   - [Updater]: guarded field updates and inactive marking.
//   - [Deleter]: the cascading [Deleter.Revoke], refresh delete and reaping.
//
// Every call is wrapped by the store retry policy. Multi-key changes run as
// named scripts ([IncrementAndCheck], [MultiKeyCreate], [MultiKeyRevoke],
// [GuardedUpdate], [MarkInactive]) invoked by digest and re-registered once
// when the server reports NOSCRIPT.
//
// # What this package must NOT do
//
//   - Mint or verify tokens.
//   - Revoke anywhere except [Deleter.Revoke].
//   - Assume single-slot placement. The scripts touch several unrelated keys
//     and need a non-clustered Redis.
package cache
