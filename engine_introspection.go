package authcache

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcache/cache"
)

// SessionInfo is the safe view of a live session. It never carries token
// material or the profile blob.
type SessionInfo struct {
	SessionID   string
	Sub         string
	Role        string
	LoginMethod string
	Active      bool
	// Count is the admission count in the current window.
	Count     int64
	CreatedAt time.Time
}

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}

// GetSessionInfo reports a session's state and current admission count
// without counting against the ceiling.
//
//	Performance: 1 HGETALL + 1 GET.
func (e *Engine) GetSessionInfo(ctx context.Context, sessionID string) (*SessionInfo, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	sess, err := e.readSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	count, err := e.cache.Reader.ReadRateCount(ctx, sessionID)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return nil, storeError(err)
	}

	return &SessionInfo{
		SessionID:   sess.SessionID,
		Sub:         sess.Sub,
		Role:        sess.Role,
		LoginMethod: sess.LoginMethod,
		Active:      sess.Status != cache.StatusInactive,
		Count:       count,
		CreatedAt:   time.Unix(sess.CreatedAt, 0).UTC(),
	}, nil
}

// Health pings Redis once.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if !e.ready() {
		return HealthStatus{}
	}
	latency, err := e.cache.Ping(ctx)
	return HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   latency,
	}
}
