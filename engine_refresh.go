package authcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcache/cache"
	"github.com/MrEthical07/authcache/internal/flows"
	"github.com/MrEthical07/authcache/jwt"
	"go.uber.org/zap"
)

// Refresh exchanges a refresh token for a new access token.
//
// The refresh record must still exist and the session must be active.
// The exchange counts against the session's ceiling; crossing it revokes
// the session and returns ErrSessionTerminated. With Config.JWT.RotateRefresh
// the returned Session also carries a new refresh token and the old one
// stops working.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Refresh(ctx, refreshToken)
	if res.Failure != flows.RefreshFailureNone {
		err := e.refreshError(res)
		e.metricInc(MetricRefreshFailure)
		event := auditEventRefreshInvalid
		if errors.Is(err, ErrSessionTerminated) {
			event = auditEventSessionTerminated
		}
		e.emitAudit(ctx, event, false, res.Sub, res.SessionID, err, func() map[string]string {
			return map[string]string{"stage": refreshStage(res.Failure)}
		})
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	if res.RefreshToken != "" {
		e.metricInc(MetricRefreshRotated)
	}
	e.emitAudit(ctx, auditEventRefreshSuccess, true, res.Sub, res.SessionID, nil, nil)
	return &Session{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		SessionID:    res.SessionID,
		Sub:          res.Sub,
		Role:         res.Role,
		Count:        res.Count,
	}, nil
}

func (e *Engine) refreshError(res flows.RefreshResult) error {
	switch res.Failure {
	case flows.RefreshFailureDecode, flows.RefreshFailureRecordMissing:
		return ErrRefreshInvalid
	case flows.RefreshFailureExpired:
		return ErrRefreshExpired
	case flows.RefreshFailureInactive:
		return ErrSessionTerminated
	case flows.RefreshFailureRateLimited:
		e.metricInc(MetricRateLimitHit)
		e.metricInc(MetricSessionInvalidated)
		return ErrSessionTerminated
	case flows.RefreshFailureIssueAccess:
		return fmt.Errorf("%w: %v", ErrTokenIssue, res.Err)
	case flows.RefreshFailureRotate:
		if errors.Is(res.Err, jwt.ErrTokenCreation) {
			return fmt.Errorf("%w: %v", ErrTokenIssue, res.Err)
		}
		return storeError(res.Err)
	default:
		return storeError(res.Err)
	}
}

func refreshStage(kind flows.RefreshFailureKind) string {
	switch kind {
	case flows.RefreshFailureDecode:
		return "decode"
	case flows.RefreshFailureExpired:
		return "expired"
	case flows.RefreshFailureRecordMissing:
		return "record_missing"
	case flows.RefreshFailureInactive:
		return "inactive"
	case flows.RefreshFailureRateLimited:
		return "rate_limited"
	case flows.RefreshFailureIssueAccess:
		return "issue_access"
	case flows.RefreshFailureRotate:
		return "rotate"
	default:
		return "store"
	}
}

// Logout revokes the session behind a refresh token: refresh record, rate
// counter, session hash, and the email index when it still points at this
// session. Logging out twice succeeds.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	res := e.flows.Logout(ctx, refreshToken)
	switch res.Failure {
	case flows.LogoutFailureNone:
	case flows.LogoutFailureDecode:
		e.emitAudit(ctx, auditEventLogout, false, "", "", ErrRefreshInvalid, nil)
		return ErrRefreshInvalid
	default:
		err := storeError(res.Err)
		e.emitAudit(ctx, auditEventLogout, false, res.Sub, res.SessionID, err, nil)
		return err
	}

	e.metricInc(MetricLogout)
	if res.Removed > 0 {
		e.metricInc(MetricSessionInvalidated)
	}
	e.emitAudit(ctx, auditEventLogout, true, res.Sub, res.SessionID, nil, func() map[string]string {
		return map[string]string{"removed": fmt.Sprint(res.Removed)}
	})
	return nil
}

// VerifyAccess checks an access token and returns its identity.
//
// Token-only verification costs no store round trip. With
// Config.Session.StrictAccess the session must also still exist and be
// active, which makes revocation immediate.
func (e *Engine) VerifyAccess(ctx context.Context, token string) (*Identity, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricVerifyLatency, time.Since(start))
		}
	}()

	claims, err := e.tokens.VerifyAccess(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		e.logger.Debug("access token rejected", zap.Error(err))
		return nil, ErrTokenInvalid
	}
	id := &Identity{
		Sub:       claims.Subject,
		Role:      claims.Role,
		SessionID: claims.SessionID,
		JTI:       claims.ID,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}

	if !e.config.Session.StrictAccess {
		return id, nil
	}
	if id.SessionID == "" {
		return nil, ErrSessionTerminated
	}
	sess, err := e.cache.Reader.ReadProfile(ctx, id.SessionID)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return nil, ErrSessionTerminated
	case err != nil:
		return nil, storeError(err)
	case sess.Status == cache.StatusInactive:
		return nil, ErrSessionTerminated
	}
	return id, nil
}

// VerifyRefresh checks a refresh token against its stored record without
// spending a request from the session's ceiling.
func (e *Engine) VerifyRefresh(ctx context.Context, refreshToken string) (*Identity, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	claims, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrRefreshExpired
		}
		return nil, ErrRefreshInvalid
	}
	seed, err := e.cache.Reader.ReadAccessClaimsFromRefresh(ctx, claims.ID)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return nil, ErrRefreshInvalid
	case err != nil:
		return nil, storeError(err)
	case seed.SessionID != claims.SessionID:
		return nil, ErrRefreshInvalid
	case seed.Status == cache.StatusInactive:
		return nil, ErrSessionTerminated
	}
	id := &Identity{
		Sub:       seed.Sub,
		Role:      seed.Role,
		SessionID: seed.SessionID,
		JTI:       claims.ID,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}
