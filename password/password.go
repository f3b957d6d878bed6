package password

import (
	"errors"
	"strings"
)

const (
	DefaultMaxPasswordBytes = 1024
	minPasswordBytes        = 10
)

var (
	ErrPasswordLength  = errors.New("password length out of range")
	ErrUnsupportedHash = errors.New("unsupported password hash")
	ErrMalformedHash   = errors.New("malformed password hash")
)

// Verifier is what the engine needs from a password scheme.
type Verifier interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) (bool, error)
	NeedsRehash(encoded string) bool
}

// Hasher writes Argon2id and verifies Argon2id or bcrypt depending on the
// stored hash prefix.
type Hasher struct {
	argon    *Argon2
	bcrypt   *Bcrypt
	maxBytes int
}

// NewHasher builds the default scheme. A zero Config selects
// DefaultArgon2Config.
func NewHasher(cfg Config) (*Hasher, error) {
	if cfg == (Config{}) {
		cfg = DefaultArgon2Config()
	}
	a, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	b, err := NewBcrypt(0)
	if err != nil {
		return nil, err
	}
	return &Hasher{argon: a, bcrypt: b, maxBytes: a.maxBytes}, nil
}

func (h *Hasher) Hash(plain string) (string, error) {
	if err := checkLength(plain, h.maxBytes); err != nil {
		return "", err
	}
	return h.argon.Hash(plain)
}

func (h *Hasher) Verify(plain, encoded string) (bool, error) {
	if len(plain) > h.maxBytes {
		return false, ErrPasswordLength
	}
	switch {
	case strings.HasPrefix(encoded, "$"+argonID+"$"):
		return h.argon.Verify(plain, encoded)
	case isBcrypt(encoded):
		return h.bcrypt.Verify(plain, encoded)
	default:
		return false, ErrUnsupportedHash
	}
}

func (h *Hasher) NeedsRehash(encoded string) bool {
	if isBcrypt(encoded) {
		return true
	}
	return h.argon.NeedsRehash(encoded)
}

func checkLength(plain string, max int) error {
	if len(plain) < minPasswordBytes || len(plain) > max {
		return ErrPasswordLength
	}
	return nil
}
