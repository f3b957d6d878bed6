package authcache

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/authcache/cache"
	"github.com/MrEthical07/authcache/internal"
	internalaudit "github.com/MrEthical07/authcache/internal/audit"
	"github.com/MrEthical07/authcache/internal/flows"
	"github.com/MrEthical07/authcache/internal/seal"
	"github.com/MrEthical07/authcache/jwt"
	"github.com/MrEthical07/authcache/password"
	"github.com/MrEthical07/authcache/profile"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const magicLinkSealContext = "authcache/magic-link/v1:"

// Builder assembles an [Engine]. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger *zap.Logger

	profiles  ProfileStore
	verifier  PasswordVerifier
	sender    MagicLinkSender
	auditSink AuditSink
	keys      *jwt.KeyRing

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the shared store client, usually store.Client.Redis().
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithProfileStore enables durable write-through and cache-miss lookups.
func (b *Builder) WithProfileStore(store ProfileStore) *Builder {
	b.profiles = store
	return b
}

// WithPasswordVerifier replaces the default Argon2id/bcrypt hasher.
func (b *Builder) WithPasswordVerifier(v PasswordVerifier) *Builder {
	b.verifier = v
	return b
}

func (b *Builder) WithSender(s MagicLinkSender) *Builder {
	b.sender = s
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithKeyRing supplies signing and encryption keys, for example loaded
// from PEM. Without it Build generates a fresh ring, and tokens do not
// survive a restart.
func (b *Builder) WithKeyRing(keys *jwt.KeyRing) *Builder {
	b.keys = keys
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := &Engine{
		config:   cfg,
		logger:   logger,
		profiles: b.profiles,
		sender:   b.sender,
		metrics:  NewMetrics(cfg.Metrics),
	}

	// -------- STORE --------
	engine.cache = cache.New(b.redis, cache.Options{
		Config:        cfg.cacheConfig(),
		Logger:        logger,
		RetryAttempts: cfg.Retry.Attempts,
		RetryMinWait:  cfg.Retry.MinWait,
		RetryMaxWait:  cfg.Retry.MaxWait,
		OnRetry:       func(string) { engine.metricInc(MetricStoreRetry) },
		OnOutOfMemory: func(string) { engine.metricInc(MetricStoreOutOfMemory) },
	})

	// -------- TOKENS --------
	keys := b.keys
	if keys == nil {
		var err error
		keys, err = jwt.NewKeyRing(cfg.JWT.KeyBits)
		if err != nil {
			return nil, err
		}
	}
	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.Cache.RefreshTTL,
		Issuer:        strings.TrimSpace(cfg.JWT.Issuer),
		Leeway:        cfg.JWT.Leeway,
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		SealSecret:    cloneBytes(cfg.JWT.SealSecret),
	}, keys)
	if err != nil {
		return nil, err
	}
	engine.tokens = tokens

	// -------- PROFILE / PASSWORD --------
	codec, err := profile.NewCodec(cfg.Profile.Secret, cfg.Profile.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("profile codec: %w", err)
	}
	engine.codec = codec

	linkBox, err := seal.New(append([]byte(magicLinkSealContext), cfg.Profile.Secret...))
	if err != nil {
		return nil, err
	}
	engine.linkBox = linkBox

	engine.verifier = b.verifier
	if engine.verifier == nil {
		hasher, err := password.NewHasher(cfg.passwordConfig())
		if err != nil {
			return nil, err
		}
		engine.verifier = hasher
	}

	ids, err := internal.NewIDs(cfg.Session.NodeID)
	if err != nil {
		return nil, fmt.Errorf("session id generator: %w", err)
	}
	engine.ids = ids

	// -------- FLOWS --------
	engine.flows = flows.New(flows.Deps{
		Issue: flows.IssueDeps{
			NewSessionID: ids.SessionID,
			NewTokenID:   ids.TokenID,
			RefreshTTL:   cfg.Cache.RefreshTTL,
			RateLimit:    cfg.Cache.RateLimit,
			Tokens:       tokens,
			Writer:       engine.cache.Writer,
		},
		Refresh: flows.RefreshDeps{
			Parser:     tokens,
			Tokens:     tokens,
			Reader:     engine.cache.Reader,
			Writer:     engine.cache.Writer,
			Updater:    engine.cache.Updater,
			Deleter:    engine.cache.Deleter,
			NewTokenID: ids.TokenID,
			RefreshTTL: cfg.Cache.RefreshTTL,
			RateLimit:  cfg.Cache.RateLimit,
			Rotate:     cfg.JWT.RotateRefresh,
			Warn:       logger.Sugar().Warnw,
		},
		Logout: flows.LogoutDeps{
			Parser:  tokens,
			Reader:  engine.cache.Reader,
			Deleter: engine.cache.Deleter,
		},
	})

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true
	logger.Info("engine built",
		zap.String("kid", keys.ActiveKID()),
		zap.Int64("rate_limit", cfg.Cache.RateLimit),
		zap.Int("retry_attempts", cfg.Retry.Attempts),
		zap.Bool("strict_access", cfg.Session.StrictAccess),
	)
	return engine, nil
}
