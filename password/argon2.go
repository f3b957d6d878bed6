package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argonID = "argon2id"

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
)

// Config holds Argon2id cost parameters.
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// DefaultArgon2Config follows the RFC 9106 second recommended option.
func DefaultArgon2Config() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (c Config) validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("argon2 memory must be >= %d KB", minMemoryKB)
	case c.Time < minTimeCost:
		return fmt.Errorf("argon2 time must be >= %d", minTimeCost)
	case c.Parallelism < minParallelism:
		return fmt.Errorf("argon2 parallelism must be >= %d", minParallelism)
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("argon2 salt length must be >= %d", minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("argon2 key length must be >= %d", minKeyLength)
	case c.MaxPasswordBytes < 0:
		return fmt.Errorf("max password bytes must not be negative")
	}
	return nil
}

// Argon2 hashes with fixed Argon2id parameters and verifies any Argon2id
// PHC string regardless of the parameters it was made with.
type Argon2 struct {
	config   Config
	maxBytes int
}

func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	max := cfg.MaxPasswordBytes
	if max == 0 {
		max = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg, maxBytes: max}, nil
}

func (a *Argon2) Hash(plain string) (string, error) {
	if err := checkLength(plain, a.maxBytes); err != nil {
		return "", err
	}
	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	p := phc{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        salt,
	}
	p.key = p.derive(plain, a.config.KeyLength)
	return p.String(), nil
}

func (a *Argon2) Verify(plain, encoded string) (bool, error) {
	if len(plain) > a.maxBytes {
		return false, ErrPasswordLength
	}
	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	got := p.derive(plain, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(got, p.key) == 1, nil
}

// NeedsRehash reports whether encoded was made with weaker parameters than
// the current config. Unparseable input reports true.
func (a *Argon2) NeedsRehash(encoded string) bool {
	p, err := parsePHC(encoded)
	if err != nil {
		return true
	}
	return p.memory < a.config.Memory ||
		p.time < a.config.Time ||
		p.parallelism < a.config.Parallelism ||
		uint32(len(p.key)) != a.config.KeyLength
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) derive(plain string, keyLen uint32) []byte {
	return argon2.IDKey([]byte(plain), p.salt, p.time, p.memory, p.parallelism, keyLen)
}

func (p phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argonID, argon2.Version,
		p.memory, p.time, p.parallelism,
		base64.RawStdEncoding.EncodeToString(p.salt),
		base64.RawStdEncoding.EncodeToString(p.key),
	)
}

func parsePHC(encoded string) (phc, error) {
	var p phc
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return p, ErrMalformedHash
	}
	if parts[1] != argonID {
		return p, ErrUnsupportedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, ErrMalformedHash
	}
	if version != argon2.Version {
		return p, fmt.Errorf("%w: argon2 version %d", ErrUnsupportedHash, version)
	}

	var parallelism uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &parallelism); err != nil {
		return p, ErrMalformedHash
	}
	if p.memory < minMemoryKB || p.time < minTimeCost || parallelism < uint32(minParallelism) || parallelism > 255 {
		return p, ErrMalformedHash
	}
	p.parallelism = uint8(parallelism)

	var err error
	if p.salt, err = decodeB64(parts[4]); err != nil || len(p.salt) < int(minSaltLength) {
		return p, ErrMalformedHash
	}
	if p.key, err = decodeB64(parts[5]); err != nil || len(p.key) == 0 {
		return p, ErrMalformedHash
	}
	return p, nil
}

// decodeB64 accepts both the unpadded PHC form and padded std base64.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}
