package authcache

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "test config valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "jwt leeway valid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "jwt leeway invalid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "refresh secret short",
			mutate: func(c *Config) {
				c.JWT.RefreshSecret = []byte("too-short")
			},
			wantValid: false,
		},
		{
			name: "profile secret missing",
			mutate: func(c *Config) {
				c.Profile.Secret = nil
			},
			wantValid: false,
		},
		{
			name: "access ttl not shorter than refresh ttl",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = c.Cache.RefreshTTL
			},
			wantValid: false,
		},
		{
			name: "session ttl shorter than refresh ttl",
			mutate: func(c *Config) {
				c.Cache.SessionTTL = c.Cache.RefreshTTL - time.Second
			},
			wantValid: false,
		},
		{
			name: "session ttl equal to refresh ttl",
			mutate: func(c *Config) {
				c.Cache.SessionTTL = c.Cache.RefreshTTL
			},
			wantValid: true,
		},
		{
			name: "rate limit zero",
			mutate: func(c *Config) {
				c.Cache.RateLimit = 0
			},
			wantValid: false,
		},
		{
			name: "retry attempts zero",
			mutate: func(c *Config) {
				c.Retry.Attempts = 0
			},
			wantValid: false,
		},
		{
			name: "retry attempts above bound",
			mutate: func(c *Config) {
				c.Retry.Attempts = 6
			},
			wantValid: false,
		},
		{
			name: "retry max below min",
			mutate: func(c *Config) {
				c.Retry.MinWait = time.Second
				c.Retry.MaxWait = time.Millisecond
			},
			wantValid: false,
		},
		{
			name: "rsa key too small",
			mutate: func(c *Config) {
				c.JWT.KeyBits = 1024
			},
			wantValid: false,
		},
		{
			name: "compression level out of range",
			mutate: func(c *Config) {
				c.Profile.CompressionLevel = 12
			},
			wantValid: false,
		},
		{
			name: "default role blank",
			mutate: func(c *Config) {
				c.Profile.DefaultRole = "  "
			},
			wantValid: false,
		},
		{
			name: "node id out of range",
			mutate: func(c *Config) {
				c.Session.NodeID = 1024
			},
			wantValid: false,
		},
		{
			name: "audit buffer zero while enabled",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "audit buffer zero while disabled",
			mutate: func(c *Config) {
				c.Audit.Enabled = false
				c.Audit.BufferSize = 0
			},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultConfigNeedsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("default config must not validate without secrets")
	}
}

func TestWithConfigCopiesSecrets(t *testing.T) {
	cfg := testConfig()
	b := New().WithConfig(cfg)
	cfg.JWT.RefreshSecret[0] = 'X'
	if b.config.JWT.RefreshSecret[0] == 'X' {
		t.Fatal("builder shares the caller's secret slice")
	}
}

func TestBuildRequirements(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected error without redis client")
	}

	_, rdb := newTestRedis(t)
	bad := testConfig()
	bad.Profile.Secret = nil
	if _, err := New().WithConfig(bad).WithRedis(rdb).WithKeyRing(testKeyRing(t)).Build(); err == nil {
		t.Fatal("expected error for invalid config")
	}

	b := New().WithConfig(testConfig()).WithRedis(rdb).WithKeyRing(testKeyRing(t))
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected builder to be single use")
	}
	if len(engine.JWKS().Keys) == 0 {
		t.Fatal("expected published signing keys")
	}
}
