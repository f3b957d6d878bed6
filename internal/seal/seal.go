package seal

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrKeyRequired = errors.New("seal key required")
	ErrOpen        = errors.New("sealed value invalid")
)

// Box seals short values (token ids, profile blobs) with XChaCha20-Poly1305.
// Output is base64url without padding: nonce || ciphertext.
type Box struct {
	aead cipher.AEAD
}

// New derives a 32-byte key from secret with SHA-256.
func New(secret []byte) (*Box, error) {
	if len(secret) == 0 {
		return nil, ErrKeyRequired
	}
	key := sha256.Sum256(secret)
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, err
	}
	return &Box{aead: aead}, nil
}

func (b *Box) SealBytes(plain []byte) (string, error) {
	nonce := make([]byte, b.aead.NonceSize(), b.aead.NonceSize()+len(plain)+b.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := b.aead.Seal(nonce, nonce, plain, nil)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (b *Box) OpenBytes(sealed string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return nil, ErrOpen
	}
	ns := b.aead.NonceSize()
	if len(raw) < ns+b.aead.Overhead() {
		return nil, ErrOpen
	}
	plain, err := b.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return nil, ErrOpen
	}
	return plain, nil
}

func (b *Box) Seal(plain string) (string, error) {
	return b.SealBytes([]byte(plain))
}

func (b *Box) Open(sealed string) (string, error) {
	plain, err := b.OpenBytes(sealed)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
