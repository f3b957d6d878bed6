package cache

import (
	"context"

	"github.com/MrEthical07/authcache/internal/retry"
	"go.uber.org/zap"
)

// Deleter removes cache state. Revoke is the one cascading delete; logout
// and rate-limit refusal both go through it.
type Deleter struct {
	*base
	reader *Reader
}

// Revoke deletes re:{jti}, ra:{sid} and s:{sid} in that order inside one
// script, then the inactive marker and, when req.Email is set, the email
// index if it still points at the session. It returns how many of the first
// three keys existed.
//
//	Performance: 1 EVALSHA.
func (d *Deleter) Revoke(ctx context.Context, req RevokeRequest) (int64, error) {
	if req.JTI == "" || req.SessionID == "" {
		return 0, ErrInvalidRequest
	}
	keys := []string{
		RefreshKey(req.JTI),
		RateKey(req.SessionID),
		SessionKey(req.SessionID),
		InactiveKey(req.SessionID),
	}
	if req.Email != "" {
		keys = append(keys, EmailIndexKey(req.Email))
	}
	return d.runScript(ctx, retry.OpRevoke, MultiKeyRevoke, keys, req.SessionID)
}

// DeleteRefresh removes one refresh record.
//
//	Performance: 1 DEL.
func (d *Deleter) DeleteRefresh(ctx context.Context, jti string) error {
	if jti == "" {
		return ErrInvalidRequest
	}
	return d.policy.Do(ctx, retry.OpDeleteRefresh, func(ctx context.Context) error {
		return d.rdb.Del(ctx, RefreshKey(jti)).Err()
	})
}

// ReapInactive deletes everything ReadInactiveList returns with one DEL.
// An empty list issues no delete at all.
//
//	Performance: SCAN + MGET pages, then at most 1 DEL.
func (d *Deleter) ReapInactive(ctx context.Context) (int64, error) {
	keys, err := d.reader.ReadInactiveList(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	var removed int64
	err = d.policy.Do(ctx, retry.OpReap, func(ctx context.Context) error {
		var err error
		removed, err = d.rdb.Del(ctx, keys...).Result()
		return err
	})
	if err != nil {
		return 0, err
	}
	d.logger.Info("reaped inactive sessions",
		zap.Int("keys", len(keys)),
		zap.Int64("removed", removed),
	)
	return removed, nil
}

// ConsumeMagicLink deletes the token marker. Only the caller that actually
// removed it gets true.
//
//	Performance: 1 DEL.
func (d *Deleter) ConsumeMagicLink(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, ErrInvalidRequest
	}
	var n int64
	err := d.policy.Do(ctx, retry.OpMagicLink, func(ctx context.Context) error {
		var err error
		n, err = d.rdb.Del(ctx, token).Result()
		return err
	})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
