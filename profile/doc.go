// Package profile owns the user profile blob kept in the session hash and
// its durable copy.
//
// Codec turns a Profile into the opaque "data" field: JSON, zlib-compressed
// with github.com/klauspost/compress, sealed with XChaCha20-Poly1305 and
// base64url encoded. Store is the write-through boundary; MongoStore backs it
// with go.mongodb.org/mongo-driver and MemoryStore serves tests and the load
// generator.
package profile
