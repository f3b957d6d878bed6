package authcache

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/authcache/cache"
	"github.com/MrEthical07/authcache/password"
)

// Config is the full engine configuration. Start from [DefaultConfig],
// override what you need, and pass it to [Builder.WithConfig]. Secrets
// have no defaults; Build fails until they are set.
type Config struct {
	Cache     CacheConfig     `koanf:"cache"`
	Retry     RetryConfig     `koanf:"retry"`
	JWT       JWTConfig       `koanf:"jwt"`
	Profile   ProfileConfig   `koanf:"profile"`
	Password  PasswordConfig  `koanf:"password"`
	Session   SessionConfig   `koanf:"session"`
	MagicLink MagicLinkConfig `koanf:"magic_link"`
	Audit     AuditConfig     `koanf:"audit"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig sets key lifetimes and the per-session request ceiling.
type CacheConfig struct {
	RefreshTTL   time.Duration `koanf:"refresh_ttl"`
	SessionTTL   time.Duration `koanf:"session_ttl"`
	RateLimit    int64         `koanf:"rate_limit"`
	RateWindow   time.Duration `koanf:"rate_window"`
	MagicLinkTTL time.Duration `koanf:"magic_link_ttl"`
	ScanCount    int64         `koanf:"scan_count"`
}

// RetryConfig bounds the store retry policy. MaxWait, when positive,
// replaces every per-operation backoff ceiling.
type RetryConfig struct {
	Attempts int           `koanf:"attempts"`
	MinWait  time.Duration `koanf:"min_wait"`
	MaxWait  time.Duration `koanf:"max_wait"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token minting. Refresh tokens expire together with
// their record, so their lifetime is Cache.RefreshTTL.
type JWTConfig struct {
	AccessTTL time.Duration `koanf:"access_ttl"`
	Issuer    string        `koanf:"issuer"`
	Leeway    time.Duration `koanf:"leeway"`
	// RefreshSecret signs refresh tokens (HS256). At least 32 bytes.
	RefreshSecret []byte `koanf:"refresh_secret"`
	// SealSecret, when set, seals jti and session_id inside refresh tokens.
	SealSecret []byte `koanf:"seal_secret"`
	// RotateRefresh issues a new refresh token on every refresh exchange
	// and drops the old record.
	RotateRefresh bool `koanf:"rotate_refresh"`
	KeyBits       int  `koanf:"key_bits"`
	// KeepKeys is how many signing keys stay verifiable after rotation.
	KeepKeys int `koanf:"keep_keys"`
}

/*
====================================
PROFILE CONFIG
====================================
*/

// ProfileConfig controls the sealed profile blob stored in the session hash.
type ProfileConfig struct {
	Secret           []byte `koanf:"secret"`
	CompressionLevel int    `koanf:"compression_level"`
	DefaultRole      string `koanf:"default_role"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters for new hashes. Legacy bcrypt
// hashes still verify and are upgraded on login when UpgradeOnLogin is set.
type PasswordConfig struct {
	Memory           uint32 `koanf:"memory"`
	Time             uint32 `koanf:"time"`
	Parallelism      uint8  `koanf:"parallelism"`
	SaltLength       uint32 `koanf:"salt_length"`
	KeyLength        uint32 `koanf:"key_length"`
	MaxPasswordBytes int    `koanf:"max_password_bytes"`
	UpgradeOnLogin   bool   `koanf:"upgrade_on_login"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls id generation and access verification depth.
type SessionConfig struct {
	// NodeID seeds the snowflake generator; unique per process (0..1023).
	NodeID int64 `koanf:"node_id"`
	// StrictAccess makes VerifyAccess confirm the session is still live
	// and active in the store. Without it verification is token-only.
	StrictAccess bool `koanf:"strict_access"`
}

// MagicLinkConfig toggles passwordless login.
type MagicLinkConfig struct {
	Enabled bool `koanf:"enabled"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool `koanf:"enabled"`
	BufferSize int  `koanf:"buffer_size"`
	DropIfFull bool `koanf:"drop_if_full"`
}

type MetricsConfig struct {
	Enabled                 bool `koanf:"enabled"`
	EnableLatencyHistograms bool `koanf:"enable_latency_histograms"`
}

// DefaultConfig returns production defaults without secrets.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	argon := password.DefaultArgon2Config()
	return Config{
		Cache: CacheConfig{
			RefreshTTL:   cache.DefaultRefreshTTL,
			SessionTTL:   cache.DefaultSessionTTL,
			RateLimit:    cache.DefaultRateLimit,
			RateWindow:   cache.DefaultRateWindow,
			MagicLinkTTL: cache.DefaultMagicLinkTTL,
			ScanCount:    cache.DefaultScanCount,
		},
		Retry: RetryConfig{
			Attempts: 2,
			MinWait:  2 * time.Second,
		},
		JWT: JWTConfig{
			AccessTTL: 5 * time.Minute,
			Issuer:    "authcache",
			Leeway:    30 * time.Second,
			KeyBits:   2048,
			KeepKeys:  2,
		},
		Profile: ProfileConfig{
			DefaultRole: "normal",
		},
		Password: PasswordConfig{
			Memory:           argon.Memory,
			Time:             argon.Time,
			Parallelism:      argon.Parallelism,
			SaltLength:       argon.SaltLength,
			KeyLength:        argon.KeyLength,
			MaxPasswordBytes: password.DefaultMaxPasswordBytes,
			UpgradeOnLogin:   true,
		},
		Session: SessionConfig{
			NodeID: 1,
		},
		MagicLink: MagicLinkConfig{
			Enabled: true,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	cfg.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	cfg.JWT.SealSecret = cloneBytes(cfg.JWT.SealSecret)
	cfg.Profile.Secret = cloneBytes(cfg.Profile.Secret)
	return cfg
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c Config) cacheConfig() cache.Config {
	return cache.Config{
		RefreshTTL:   c.Cache.RefreshTTL,
		SessionTTL:   c.Cache.SessionTTL,
		RateLimit:    c.Cache.RateLimit,
		RateWindow:   c.Cache.RateWindow,
		MagicLinkTTL: c.Cache.MagicLinkTTL,
		ScanCount:    c.Cache.ScanCount,
	}
}

func (c Config) passwordConfig() password.Config {
	return password.Config{
		Memory:           c.Password.Memory,
		Time:             c.Password.Time,
		Parallelism:      c.Password.Parallelism,
		SaltLength:       c.Password.SaltLength,
		KeyLength:        c.Password.KeyLength,
		MaxPasswordBytes: c.Password.MaxPasswordBytes,
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	// Cache
	if c.Cache.RefreshTTL <= 0 {
		return errors.New("Cache RefreshTTL must be > 0")
	}
	if c.Cache.SessionTTL <= 0 {
		return errors.New("Cache SessionTTL must be > 0")
	}
	if c.Cache.SessionTTL < c.Cache.RefreshTTL {
		return errors.New("Cache SessionTTL must be >= RefreshTTL")
	}
	if c.Cache.RateLimit <= 0 {
		return errors.New("Cache RateLimit must be > 0")
	}
	if c.Cache.RateWindow <= 0 {
		return errors.New("Cache RateWindow must be > 0")
	}
	if c.Cache.MagicLinkTTL <= 0 {
		return errors.New("Cache MagicLinkTTL must be > 0")
	}
	if c.Cache.ScanCount <= 0 {
		return errors.New("Cache ScanCount must be > 0")
	}

	// Retry
	if c.Retry.Attempts < 1 || c.Retry.Attempts > 5 {
		return errors.New("Retry Attempts must be in [1,5]")
	}
	if c.Retry.MinWait < 0 || c.Retry.MaxWait < 0 {
		return errors.New("Retry waits must be >= 0")
	}
	if c.Retry.MaxWait > 0 && c.Retry.MaxWait < c.Retry.MinWait {
		return errors.New("Retry MaxWait must be >= MinWait")
	}

	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.AccessTTL >= c.Cache.RefreshTTL {
		return errors.New("JWT AccessTTL must be shorter than Cache RefreshTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be in [0,2m]")
	}
	if len(c.JWT.RefreshSecret) < 32 {
		return errors.New("JWT RefreshSecret must be at least 32 bytes")
	}
	if c.JWT.KeyBits != 0 && c.JWT.KeyBits < 2048 {
		return errors.New("JWT KeyBits must be >= 2048")
	}
	if c.JWT.KeepKeys < 0 {
		return errors.New("JWT KeepKeys must be >= 0")
	}

	// Profile
	if len(c.Profile.Secret) == 0 {
		return errors.New("Profile Secret must be set")
	}
	if c.Profile.CompressionLevel < -2 || c.Profile.CompressionLevel > 9 {
		return errors.New("Profile CompressionLevel must be in [-2,9]")
	}
	if strings.TrimSpace(c.Profile.DefaultRole) == "" {
		return errors.New("Profile DefaultRole must be set")
	}

	// Password
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}

	// Session
	if c.Session.NodeID < 0 || c.Session.NodeID > 1023 {
		return errors.New("Session NodeID must be in [0,1023]")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
