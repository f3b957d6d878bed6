package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	refreshPrefix  = "re:"
	ratePrefix     = "ra:"
	sessionPrefix  = "s:"
	inactivePrefix = "off:"

	inactivePattern = inactivePrefix + "*"
	emailHashLen    = 8
)

func RefreshKey(jti string) string {
	return refreshPrefix + jti
}

func RateKey(sessionID string) string {
	return ratePrefix + sessionID
}

func SessionKey(sessionID string) string {
	return sessionPrefix + sessionID
}

func InactiveKey(sessionID string) string {
	return inactivePrefix + sessionID
}

// EmailIndexKey returns the first eight hex characters of SHA-256 over the
// normalized email. The 32-bit space collides; lookups verify the email
// stored on the profile before trusting the pointer.
func EmailIndexKey(email string) string {
	sum := sha256.Sum256([]byte(NormalizeEmail(email)))
	return hex.EncodeToString(sum[:])[:emailHashLen]
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sessionIDFromInactiveKey(key string) string {
	return strings.TrimPrefix(key, inactivePrefix)
}
