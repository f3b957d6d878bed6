package cache

import (
	"context"
	"time"

	"github.com/MrEthical07/authcache/internal/retry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultRefreshTTL   = 3600 * time.Second
	DefaultSessionTTL   = 5400 * time.Second
	DefaultRateLimit    = 100
	DefaultRateWindow   = 3600 * time.Second
	DefaultMagicLinkTTL = 300 * time.Second
	DefaultScanCount    = 100
)

// Config holds key lifetimes and admission limits.
type Config struct {
	RefreshTTL   time.Duration
	SessionTTL   time.Duration
	RateLimit    int64
	RateWindow   time.Duration
	MagicLinkTTL time.Duration
	ScanCount    int64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		RefreshTTL:   DefaultRefreshTTL,
		SessionTTL:   DefaultSessionTTL,
		RateLimit:    DefaultRateLimit,
		RateWindow:   DefaultRateWindow,
		MagicLinkTTL: DefaultMagicLinkTTL,
		ScanCount:    DefaultScanCount,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = d.RefreshTTL
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = d.SessionTTL
	}
	if c.RateLimit <= 0 {
		c.RateLimit = d.RateLimit
	}
	if c.RateWindow <= 0 {
		c.RateWindow = d.RateWindow
	}
	if c.MagicLinkTTL <= 0 {
		c.MagicLinkTTL = d.MagicLinkTTL
	}
	if c.ScanCount <= 0 {
		c.ScanCount = d.ScanCount
	}
	return c
}

// Options wires a Cache. Retry fields left at zero select the store retry
// defaults (2 attempts, 2s minimum wait, per-operation ceilings).
type Options struct {
	Config        Config
	Logger        *zap.Logger
	RetryAttempts int
	RetryMinWait  time.Duration
	RetryMaxWait  time.Duration
	OnRetry       func(op string)
	OnOutOfMemory func(op string)
}

// Cache groups the four components that share one client and retry policy.
type Cache struct {
	Reader  *Reader
	Writer  *Writer
	Updater *Updater
	Deleter *Deleter
}

type base struct {
	rdb    redis.UniversalClient
	policy *retry.Policy
	cfg    Config
	logger *zap.Logger
}

// New builds the cache components over rdb.
func New(rdb redis.UniversalClient, opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hooks := retry.Hooks{}
	if opts.OnRetry != nil {
		hooks.OnRetry = func(op retry.Op) { opts.OnRetry(op.Name) }
	}
	if opts.OnOutOfMemory != nil {
		hooks.OnOutOfMemory = func(op retry.Op) { opts.OnOutOfMemory(op.Name) }
	}
	policy := retry.New(retry.Config{
		Attempts:        opts.RetryAttempts,
		MinWait:         opts.RetryMinWait,
		MaxWaitOverride: opts.RetryMaxWait,
	}, logger, hooks)

	b := &base{
		rdb:    rdb,
		policy: policy,
		cfg:    opts.Config.withDefaults(),
		logger: logger.Named("cache"),
	}

	reader := &Reader{base: b}
	deleter := &Deleter{base: b, reader: reader}
	return &Cache{
		Reader:  reader,
		Writer:  &Writer{base: b, deleter: deleter},
		Updater: &Updater{base: b},
		Deleter: deleter,
	}
}

// Config returns the effective configuration.
func (c *Cache) Config() Config {
	return c.Reader.cfg
}

// Ping measures one PING round trip. It bypasses the retry policy so the
// latency reported is a single attempt.
//
//	Performance: 1 PING.
func (c *Cache) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	err := c.Reader.rdb.Ping(ctx).Err()
	return time.Since(start), err
}
