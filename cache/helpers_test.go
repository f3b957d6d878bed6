package cache

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, cfg Config) (*Cache, *miniredis.Miniredis, *redis.Client) {
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

	c := New(rdb, Options{
		Config:       cfg,
		RetryMinWait: time.Millisecond,
		RetryMaxWait: 2 * time.Millisecond,
	})
	return c, mr, rdb
}

func testSession(sid, jti, email string) NewSession {
	return NewSession{
		Session: SessionFields{
			SessionID:   sid,
			Sub:         email,
			Role:        "normal",
			LoginMethod: "password",
			Data:        "blob",
			CreatedAt:   1700000000,
		},
		Refresh: RefreshRecord{
			JTI:       jti,
			SessionID: sid,
			Sub:       email,
			Role:      "normal",
			IssuedAt:  1700000000,
			ExpiresAt: 1700003600,
			TTL:       3600 * time.Second,
		},
	}
}

// cmdHook counts commands by name and can fail chosen commands.
type cmdHook struct {
	mu     sync.Mutex
	counts map[string]int
	fail   map[string]error
}

func newCmdHook() *cmdHook {
	return &cmdHook{counts: map[string]int{}, fail: map[string]error{}}
}

func (h *cmdHook) count(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[name]
}

func (h *cmdHook) failWith(name string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fail[name] = err
}

func (h *cmdHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.mu.Lock()
		h.counts[cmd.Name()]++
		err := h.fail[cmd.Name()]
		h.mu.Unlock()
		if err != nil {
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (h *cmdHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.mu.Lock()
		for _, cmd := range cmds {
			h.counts[cmd.Name()]++
		}
		h.mu.Unlock()
		return next(ctx, cmds)
	}
}

type replyError string

func (e replyError) Error() string { return string(e) }
func (replyError) RedisError()     {}
