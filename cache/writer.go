package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MrEthical07/authcache/internal/retry"
	"go.uber.org/zap"
)

// Writer creates cache state. CheckAndIncrementRate and CreateUserSession
// are the only admission decisions in the system; a refusal from either is
// compensated by exactly one revoke through the Deleter.
type Writer struct {
	*base
	deleter *Deleter
}

// CreateRefreshRecord stores the refresh record with its TTL.
//
//	Performance: 1 SET EX.
func (w *Writer) CreateRefreshRecord(ctx context.Context, rec RefreshRecord) error {
	if rec.JTI == "" || rec.SessionID == "" {
		return ErrInvalidRequest
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ttl := rec.TTL
	if ttl <= 0 {
		ttl = w.cfg.RefreshTTL
	}

	return w.policy.Do(ctx, retry.OpWriteRefresh, func(ctx context.Context) error {
		return w.rdb.Set(ctx, RefreshKey(rec.JTI), payload, ttl).Err()
	})
}

// CheckAndIncrementRate admits one request for the session. A refusal
// revokes the session before returning Allowed=false.
//
//	Performance: 1 EVALSHA, plus 1 EVALSHA revoke on refusal.
func (w *Writer) CheckAndIncrementRate(ctx context.Context, req RateCheck) (RateDecision, error) {
	if req.SessionID == "" || req.JTI == "" {
		return RateDecision{}, ErrInvalidRequest
	}
	limit := req.Limit
	if limit <= 0 {
		limit = w.cfg.RateLimit
	}

	count, err := w.runScript(ctx, retry.OpRateCheck, IncrementAndCheck,
		[]string{RateKey(req.SessionID)},
		limit,
		seconds(w.cfg.RateWindow),
	)
	if err != nil {
		return RateDecision{}, err
	}
	if count > 0 {
		return RateDecision{Allowed: true, Count: count}, nil
	}

	return RateDecision{}, w.compensate(ctx, RevokeRequest{JTI: req.JTI, SessionID: req.SessionID}, "rate limit exceeded")
}

// CreateUserSession writes session hash, refresh record, rate counter and
// email index in one script. Repeating the call with the same refresh record
// is safe: the second call returns the first call's count without another
// increment. A refusal revokes everything the call wrote.
//
//	Performance: 1 EVALSHA, plus 1 EVALSHA revoke on refusal.
func (w *Writer) CreateUserSession(ctx context.Context, req NewSession) (RateDecision, error) {
	sess := req.Session
	rec := req.Refresh
	if sess.SessionID == "" || rec.JTI == "" || sess.Sub == "" {
		return RateDecision{}, ErrInvalidRequest
	}
	if rec.SessionID == "" {
		rec.SessionID = sess.SessionID
	}
	if rec.SessionID != sess.SessionID {
		return RateDecision{}, fmt.Errorf("%w: refresh record names session %s", ErrInvalidRequest, rec.SessionID)
	}
	if rec.Sub == "" {
		rec.Sub = sess.Sub
	}
	if rec.Role == "" {
		rec.Role = sess.Role
	}
	sess.JTI = rec.JTI
	if sess.Status == "" {
		sess.Status = StatusActive
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return RateDecision{}, err
	}
	refreshTTL := rec.TTL
	if refreshTTL <= 0 {
		refreshTTL = w.cfg.RefreshTTL
	}
	limit := req.Limit
	if limit <= 0 {
		limit = w.cfg.RateLimit
	}

	args := []interface{}{
		payload,
		seconds(refreshTTL),
		limit,
		seconds(w.cfg.RateWindow),
		sess.SessionID,
		seconds(w.cfg.SessionTTL),
	}
	args = append(args, sess.pairs()...)

	count, err := w.runScript(ctx, retry.OpCreateSession, MultiKeyCreate,
		[]string{
			RefreshKey(rec.JTI),
			RateKey(sess.SessionID),
			EmailIndexKey(sess.Sub),
			SessionKey(sess.SessionID),
		},
		args...,
	)
	if err != nil {
		return RateDecision{}, err
	}
	if count > 0 {
		return RateDecision{Allowed: true, Count: count}, nil
	}

	return RateDecision{}, w.compensate(ctx, RevokeRequest{
		JTI:       rec.JTI,
		SessionID: sess.SessionID,
		Email:     sess.Sub,
	}, "session creation refused")
}

// CreateMagicLink stores a single-use marker under the raw token.
//
//	Performance: 1 SET EX.
func (w *Writer) CreateMagicLink(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidRequest
	}
	return w.policy.Do(ctx, retry.OpMagicLink, func(ctx context.Context) error {
		return w.rdb.Set(ctx, token, "", w.cfg.MagicLinkTTL).Err()
	})
}

func (w *Writer) compensate(ctx context.Context, req RevokeRequest, reason string) error {
	w.logger.Info("revoking session",
		zap.String("reason", reason),
		zap.String("session_id", req.SessionID),
	)
	if _, err := w.deleter.Revoke(ctx, req); err != nil {
		return fmt.Errorf("revoke after refusal: %w", err)
	}
	return nil
}

func seconds(d time.Duration) int64 {
	s := int64(d / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}
