package authcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcache/cache"
	"go.uber.org/zap"
)

// GetProfile decodes the profile carried by a live session. The password
// hash is never returned.
func (e *Engine) GetProfile(ctx context.Context, sessionID string) (Profile, error) {
	if !e.ready() {
		return Profile{}, ErrEngineNotReady
	}
	sess, err := e.readSession(ctx, sessionID)
	if err != nil {
		return Profile{}, err
	}
	p, err := e.codec.Decode(sess.Data)
	if err != nil {
		return Profile{}, err
	}
	p.PasswordHash = ""
	return p, nil
}

// UpdateProfile applies fn to the session's profile and stores the result
// in the session hash and the durable store. The email is the account key
// and the role is an authorization claim; fn cannot change either. The
// password hash is never exposed to fn.
//
// The update is refused with ErrSessionTerminated when the session
// disappears in the meantime; it never recreates one.
func (e *Engine) UpdateProfile(ctx context.Context, sessionID string, fn func(*Profile) error) (Profile, error) {
	if !e.ready() {
		return Profile{}, ErrEngineNotReady
	}
	if fn == nil {
		return Profile{}, ErrInvalidRequest
	}
	sess, err := e.readSession(ctx, sessionID)
	if err != nil {
		return Profile{}, err
	}
	p, err := e.codec.Decode(sess.Data)
	if err != nil {
		return Profile{}, err
	}

	hash := p.PasswordHash
	p.PasswordHash = ""
	next := p
	if err := fn(&next); err != nil {
		return Profile{}, err
	}
	next.Email = p.Email
	next.Role = p.Role
	next.CreatedAt = p.CreatedAt
	next.PasswordHash = hash

	blob, err := e.codec.Encode(next)
	if err != nil {
		return Profile{}, err
	}
	ok, err := e.cache.Updater.UpdateFields(ctx, sessionID, map[string]string{
		"data": blob,
		"role": next.Role,
	})
	if err != nil {
		return Profile{}, storeError(err)
	}
	if !ok {
		e.emitAudit(ctx, auditEventProfileUpdate, false, p.Email, sessionID, ErrSessionTerminated, nil)
		return Profile{}, ErrSessionTerminated
	}
	if err := e.writeThrough(ctx, sessionID, next.Email, next.Role, blob, next.CreatedAt); err != nil {
		e.logger.Error("profile write-through failed", zap.String("session_id", sessionID), zap.Error(err))
		return Profile{}, storeError(err)
	}

	e.metricInc(MetricProfileUpdated)
	e.emitAudit(ctx, auditEventProfileUpdate, true, next.Email, sessionID, nil, nil)
	next.PasswordHash = ""
	return next, nil
}

// Deactivate marks a session inactive. Its tokens stop refreshing at once
// and the next reap removes its keys. Reports false when the session no
// longer exists.
func (e *Engine) Deactivate(ctx context.Context, sessionID string) (bool, error) {
	if !e.ready() {
		return false, ErrEngineNotReady
	}
	ok, err := e.cache.Updater.MarkInactive(ctx, sessionID)
	if err != nil {
		if errors.Is(err, cache.ErrInvalidRequest) {
			return false, ErrInvalidRequest
		}
		return false, storeError(err)
	}
	if ok {
		e.metricInc(MetricSessionDeactivated)
	}
	e.emitAudit(ctx, auditEventDeactivate, ok, "", sessionID, nil, nil)
	return ok, nil
}

// ReapInactive deletes every inactive session with its companion keys and
// returns the number of keys removed.
func (e *Engine) ReapInactive(ctx context.Context) (int64, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	removed, err := e.cache.Deleter.ReapInactive(ctx)
	if err != nil {
		e.emitAudit(ctx, auditEventReap, false, "", "", err, nil)
		return 0, storeError(err)
	}
	if removed > 0 {
		e.metrics.Add(MetricReapedKeys, uint64(removed))
		e.logger.Info("inactive sessions reaped", zap.Int64("keys", removed))
	}
	e.emitAudit(ctx, auditEventReap, true, "", "", nil, func() map[string]string {
		return map[string]string{"keys": fmt.Sprint(removed)}
	})
	return removed, nil
}

func (e *Engine) readSession(ctx context.Context, sessionID string) (cache.SessionFields, error) {
	if sessionID == "" {
		return cache.SessionFields{}, ErrInvalidRequest
	}
	sess, err := e.cache.Reader.ReadProfile(ctx, sessionID)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return cache.SessionFields{}, ErrSessionTerminated
	case err != nil:
		return cache.SessionFields{}, storeError(err)
	}
	return sess, nil
}
