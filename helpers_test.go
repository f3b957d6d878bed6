package authcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authcache/jwt"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var (
	sharedKeysOnce sync.Once
	sharedKeys     *jwt.KeyRing
	sharedKeysErr  error
)

// testKeyRing generates one RSA ring per test binary; key generation
// dominates test time otherwise.
func testKeyRing(t testing.TB) *jwt.KeyRing {
	t.Helper()
	sharedKeysOnce.Do(func() {
		sharedKeys, sharedKeysErr = jwt.NewKeyRing(2048)
	})
	if sharedKeysErr != nil {
		t.Fatalf("NewKeyRing failed: %v", sharedKeysErr)
	}
	return sharedKeys
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Retry.MinWait = time.Millisecond
	cfg.Retry.MaxWait = 2 * time.Millisecond
	cfg.JWT.RefreshSecret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Profile.Secret = []byte("profile-secret-for-tests")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = false
	return cfg
}

type engineOption func(*Builder)

func withProfiles(store ProfileStore) engineOption {
	return func(b *Builder) { b.WithProfileStore(store) }
}

func withSender(s MagicLinkSender) engineOption {
	return func(b *Builder) { b.WithSender(s) }
}

func withAudit(sink AuditSink) engineOption {
	return func(b *Builder) { b.WithAuditSink(sink) }
}

func newTestEngine(t testing.TB, cfg Config, opts ...engineOption) (*Engine, *miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithKeyRing(testKeyRing(t))
	for _, opt := range opts {
		opt(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mr, rdb
}

func signupAlice(t testing.TB, e *Engine) *Session {
	t.Helper()

	sess, err := e.Signup(context.Background(), SignupRequest{
		Email:    "Alice@Example.com",
		Password: "correct-horse-battery",
		Name:     "Alice",
	})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	return sess
}

// mailbox records magic links handed to the sender.
type mailbox struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func newMailbox() *mailbox {
	return &mailbox{sent: map[string]string{}}
}

func (m *mailbox) Send(_ context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent[to] = token
	return nil
}

func (m *mailbox) last(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[to]
}
