// Package jwt mints and verifies the two token kinds the engine hands out.
//
// Access tokens are an RS256 JWS (golang-jwt) carried inside a compact JWE
// (go-jose, RSA-OAEP-256 key wrap, A256GCM content). The JWS header names the
// signing key by kid so a KeyRing can rotate without invalidating tokens
// already in flight.
//
// Refresh tokens are HS256 JWS. Their jti and session_id claims can be sealed
// with XChaCha20-Poly1305 so the Redis key material never appears in clear.
package jwt
