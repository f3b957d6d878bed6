package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"

	"github.com/MrEthical07/authcache/internal"
	"github.com/go-jose/go-jose/v4"
)

// DefaultKeyBits is the RSA modulus size used when generating keys.
const DefaultKeyBits = 2048

const minKeyBits = 2048

var (
	ErrKeyTooSmall  = errors.New("rsa key smaller than 2048 bits")
	ErrUnknownKeyID = errors.New("unknown kid")
	ErrKeyRequired  = errors.New("rsa key required")
)

// KeyRing holds RSA signing keys by kid plus one RSA key pair used to wrap
// the access-token envelope. Exactly one signing key is active; older keys
// stay available for verification until retired.
//
// KeyRing is safe for concurrent use.
type KeyRing struct {
	mu      sync.RWMutex
	bits    int
	active  string
	signing map[string]*rsa.PrivateKey
	order   []string
	enc     *rsa.PrivateKey
}

// NewKeyRing generates a signing key and an encryption key of the given size.
// bits <= 0 selects DefaultKeyBits.
func NewKeyRing(bits int) (*KeyRing, error) {
	if bits <= 0 {
		bits = DefaultKeyBits
	}
	if bits < minKeyBits {
		return nil, ErrKeyTooSmall
	}
	enc, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate encryption key: %w", err)
	}
	ring := &KeyRing{bits: bits, signing: map[string]*rsa.PrivateKey{}, enc: enc}
	if _, err := ring.Rotate(); err != nil {
		return nil, err
	}
	return ring, nil
}

// NewKeyRingFromKeys builds a ring around existing keys, typically loaded
// from PEM at startup. kid may be empty, in which case one is minted.
func NewKeyRingFromKeys(kid string, signing, encryption *rsa.PrivateKey) (*KeyRing, error) {
	if signing == nil || encryption == nil {
		return nil, ErrKeyRequired
	}
	if signing.N.BitLen() < minKeyBits || encryption.N.BitLen() < minKeyBits {
		return nil, ErrKeyTooSmall
	}
	if kid == "" {
		kid = internal.NewKeyID()
	}
	return &KeyRing{
		bits:    signing.N.BitLen(),
		active:  kid,
		signing: map[string]*rsa.PrivateKey{kid: signing},
		order:   []string{kid},
		enc:     encryption,
	}, nil
}

// Rotate generates a new signing key, makes it active and returns its kid.
// Previous keys keep verifying tokens they signed.
func (r *KeyRing) Rotate() (string, error) {
	key, err := rsa.GenerateKey(rand.Reader, r.bits)
	if err != nil {
		return "", fmt.Errorf("generate signing key: %w", err)
	}
	kid := internal.NewKeyID()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.signing[kid] = key
	r.order = append(r.order, kid)
	r.active = kid
	return kid, nil
}

// Retire drops every verification key except the newest keep ones. The
// active key is never dropped.
func (r *KeyRing) Retire(keep int) int {
	if keep < 1 {
		keep = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.order) <= keep {
		return 0
	}
	drop := r.order[:len(r.order)-keep]
	removed := 0
	kept := make([]string, 0, keep)
	for _, kid := range drop {
		if kid == r.active {
			kept = append(kept, kid)
			continue
		}
		delete(r.signing, kid)
		removed++
	}
	r.order = append(kept, r.order[len(r.order)-keep:]...)
	return removed
}

// ActiveKID returns the kid new access tokens are signed with.
func (r *KeyRing) ActiveKID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// JWKS publishes the public half of every signing key.
func (r *KeyRing) JWKS() jose.JSONWebKeySet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := jose.JSONWebKeySet{Keys: make([]jose.JSONWebKey, 0, len(r.order))}
	for _, kid := range r.order {
		set.Keys = append(set.Keys, jose.JSONWebKey{
			KeyID:     kid,
			Use:       "sig",
			Algorithm: string(jose.RS256),
			Key:       &r.signing[kid].PublicKey,
		})
	}
	return set
}

func (r *KeyRing) signer() (string, *rsa.PrivateKey) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active, r.signing[r.active]
}

func (r *KeyRing) verifier(kid string) (*rsa.PublicKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.signing[kid]
	if !ok {
		return nil, ErrUnknownKeyID
	}
	return &key.PublicKey, nil
}

func (r *KeyRing) encryptionKey() *rsa.PublicKey {
	return &r.enc.PublicKey
}

func (r *KeyRing) decryptionKey() *rsa.PrivateKey {
	return r.enc
}
