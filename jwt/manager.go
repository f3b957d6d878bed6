package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcache/internal/seal"
	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrTokenCreation     = errors.New("token creation failed")
	ErrTokenExpired      = errors.New("token expired")
	ErrInvalidSignature  = errors.New("token signature invalid")
	ErrMalformedEnvelope = errors.New("token envelope malformed")
	ErrRefreshMalformed  = errors.New("refresh token malformed")
)

// Config controls token lifetimes and validation.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration
	// RefreshSecret is the HS256 key for refresh tokens.
	RefreshSecret []byte
	// SealSecret, when set, seals jti and session_id inside refresh tokens.
	SealSecret []byte
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Manager mints and verifies access and refresh tokens.
//
// Manager is safe for concurrent use once constructed.
type Manager struct {
	config Config
	keys   *KeyRing
	box    *seal.Box
	now    func() time.Time
}

// AccessClaims is the JWS payload inside the access-token envelope.
type AccessClaims struct {
	Role      string `json:"role"`
	SessionID string `json:"sid,omitempty"`
	Type      string `json:"type"`
	jwt.RegisteredClaims
}

// RefreshClaims is the refresh-token payload. After ParseRefresh, ID and
// SessionID hold clear values even when they were sealed on the wire.
type RefreshClaims struct {
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	Type      string `json:"type"`
	jwt.RegisteredClaims
}

// AccessInput names the subject of a new access token.
type AccessInput struct {
	Sub       string
	Role      string
	JTI       string
	SessionID string
}

// RefreshInput names the refresh record a new refresh token points at.
type RefreshInput struct {
	Sub       string
	Role      string
	JTI       string
	SessionID string
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation fails. The returned
// Manager reads the KeyRing on every call, so rotation takes effect at once.
func NewManager(cfg Config, keys *KeyRing) (*Manager, error) {
	if keys == nil {
		return nil, errors.New("key ring required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if len(cfg.RefreshSecret) < 32 {
		return nil, errors.New("refresh secret must be at least 32 bytes")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)

	m := &Manager{config: cfg, keys: keys, now: cfg.Now}
	if m.now == nil {
		m.now = time.Now
	}
	if len(cfg.SealSecret) > 0 {
		box, err := seal.New(cfg.SealSecret)
		if err != nil {
			return nil, err
		}
		m.box = box
	}
	return m, nil
}

// Keys exposes the ring for rotation and JWKS publication.
func (m *Manager) Keys() *KeyRing {
	return m.keys
}

// CreateAccess signs the claims with the active RS256 key and encrypts the
// compact JWS to the ring's encryption key. Any failure yields
// ErrTokenCreation and no token.
func (m *Manager) CreateAccess(in AccessInput) (string, error) {
	if in.Sub == "" || in.JTI == "" {
		return "", fmt.Errorf("%w: sub and jti required", ErrTokenCreation)
	}
	now := m.now()
	claims := AccessClaims{
		Role:      in.Role,
		SessionID: in.SessionID,
		Type:      TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   in.Sub,
			ID:        in.JTI,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
		},
	}

	kid, key := m.keys.signer()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	jws, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenCreation, err)
	}

	enc, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.RSA_OAEP_256, Key: m.keys.encryptionKey()},
		(&jose.EncrypterOptions{}).WithContentType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenCreation, err)
	}
	obj, err := enc.Encrypt([]byte(jws))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenCreation, err)
	}
	out, err := obj.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenCreation, err)
	}
	return out, nil
}

// VerifyAccess opens the envelope and validates the inner JWS.
//
// It returns ErrMalformedEnvelope when the JWE cannot be parsed or
// decrypted, ErrTokenExpired when exp has passed, and ErrInvalidSignature
// for every other validation failure.
func (m *Manager) VerifyAccess(token string) (*AccessClaims, error) {
	obj, err := jose.ParseEncryptedCompact(token,
		[]jose.KeyAlgorithm{jose.RSA_OAEP_256},
		[]jose.ContentEncryption{jose.A256GCM},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	plain, err := obj.Decrypt(m.keys.decryptionKey())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	parsed, err := m.parser(jwt.SigningMethodRS256.Alg()).ParseWithClaims(string(plain), &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		return m.keys.verifier(kid)
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidSignature
	}
	if claims.Type != TypeAccess {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrInvalidSignature, claims.Type)
	}
	return claims, nil
}

// CreateRefresh signs an HS256 refresh token for the given record. When a
// seal secret is configured the jti and session_id claims are sealed.
func (m *Manager) CreateRefresh(in RefreshInput) (string, error) {
	if in.JTI == "" || in.SessionID == "" {
		return "", fmt.Errorf("%w: jti and session_id required", ErrTokenCreation)
	}
	jti, sid := in.JTI, in.SessionID
	if m.box != nil {
		var err error
		if jti, err = m.box.Seal(jti); err != nil {
			return "", fmt.Errorf("%w: %v", ErrTokenCreation, err)
		}
		if sid, err = m.box.Seal(sid); err != nil {
			return "", fmt.Errorf("%w: %v", ErrTokenCreation, err)
		}
	}

	now := m.now()
	claims := RefreshClaims{
		Role:      in.Role,
		SessionID: sid,
		Type:      TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   in.Sub,
			ID:        jti,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.RefreshTTL)),
		},
	}
	out, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.RefreshSecret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenCreation, err)
	}
	return out, nil
}

// ParseRefresh validates an HS256 refresh token and returns its claims with
// ids unsealed. It does not consult the store; callers confirm the record
// still exists.
func (m *Manager) ParseRefresh(token string) (*RefreshClaims, error) {
	parsed, err := m.parser(jwt.SigningMethodHS256.Alg()).ParseWithClaims(token, &RefreshClaims{}, func(*jwt.Token) (interface{}, error) {
		return m.config.RefreshSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrRefreshMalformed, err)
	}

	claims, ok := parsed.Claims.(*RefreshClaims)
	if !ok || !parsed.Valid || claims.Type != TypeRefresh {
		return nil, ErrRefreshMalformed
	}
	if claims.ID == "" || claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrRefreshMalformed)
	}
	if m.box != nil {
		if claims.ID, err = m.box.Open(claims.ID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRefreshMalformed, err)
		}
		if claims.SessionID, err = m.box.Open(claims.SessionID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRefreshMalformed, err)
		}
	}
	return claims, nil
}

// AccessTTL reports the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL reports the configured refresh-token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

func (m *Manager) parser(alg string) *jwt.Parser {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{alg}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	return jwt.NewParser(options...)
}
