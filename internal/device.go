package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// fingerprintSize is the number of digest bytes kept in a fingerprint.
const fingerprintSize = 8

// Fingerprint returns a short stable digest of v, or "" for an empty v.
// It labels request attributes such as user agents in audit records.
func Fingerprint(v string) string {
	if v == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:fingerprintSize])
}
