package authcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcache/cache"
	"github.com/MrEthical07/authcache/internal"
	internalaudit "github.com/MrEthical07/authcache/internal/audit"
	"github.com/MrEthical07/authcache/internal/flows"
	"github.com/MrEthical07/authcache/internal/seal"
	"github.com/MrEthical07/authcache/jwt"
	"github.com/MrEthical07/authcache/profile"
	"github.com/go-jose/go-jose/v4"
	"go.uber.org/zap"
)

// Engine issues, verifies, rate-limits and revokes credentials over the
// shared session cache. Build one with [New] and share it; every method is
// safe for concurrent use.
type Engine struct {
	config   Config
	logger   *zap.Logger
	cache    *cache.Cache
	tokens   *jwt.Manager
	codec    *profile.Codec
	linkBox  *seal.Box
	ids      *internal.IDs
	flows    flows.Service
	profiles ProfileStore
	verifier PasswordVerifier
	sender   MagicLinkSender
	audit    *internalaudit.Dispatcher
	metrics  *Metrics
}

// Close flushes pending audit events. It does not close the Redis client,
// which the caller owns.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped on backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// JWKS publishes the public signing keys, including those kept after
// rotation.
func (e *Engine) JWKS() jose.JSONWebKeySet {
	return e.tokens.Keys().JWKS()
}

// RotateSigningKey makes a new signing key active and retires keys beyond
// Config.JWT.KeepKeys. Access tokens signed by a retired key stop
// verifying.
func (e *Engine) RotateSigningKey() (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	keys := e.tokens.Keys()
	kid, err := keys.Rotate()
	if err != nil {
		return "", err
	}
	retired := 0
	if e.config.JWT.KeepKeys > 0 {
		retired = keys.Retire(e.config.JWT.KeepKeys)
	}
	e.logger.Info("signing key rotated", zap.String("kid", kid), zap.Int("retired", retired))
	return kid, nil
}

// Cache exposes the underlying cache components for maintenance tools.
func (e *Engine) Cache() *cache.Cache {
	return e.cache
}

func (e *Engine) ready() bool {
	return e != nil && e.cache != nil && e.tokens != nil && e.flows.Initialized()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// storeError keeps the cache sentinel (out of memory, script missing)
// visible next to ErrStoreUnavailable.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.Join(ErrStoreUnavailable, err)
}

func (e *Engine) issueError(res flows.IssueResult) error {
	switch res.Failure {
	case flows.IssueFailureNone:
		return nil
	case flows.IssueFailureInvalid:
		return ErrInvalidRequest
	case flows.IssueFailureMint:
		return fmt.Errorf("%w: %v", ErrTokenIssue, res.Err)
	case flows.IssueFailureDenied:
		e.metricInc(MetricRateLimitHit)
		e.metricInc(MetricSessionInvalidated)
		return ErrSessionTerminated
	default:
		return storeError(res.Err)
	}
}

func sessionFromIssue(res flows.IssueResult) *Session {
	return &Session{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		SessionID:    res.SessionID,
		Sub:          res.Sub,
		Role:         res.Role,
		Reissued:     res.Reissued,
		Count:        res.Count,
	}
}
