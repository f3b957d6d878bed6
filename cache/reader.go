package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcache/internal/retry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Reader performs read-only lookups. Every call runs under the read retry
// class and maps absence to ErrNotFound.
type Reader struct {
	*base
}

// ReadProfile returns the session hash for sessionID.
//
//	Performance: 1 HGETALL.
func (r *Reader) ReadProfile(ctx context.Context, sessionID string) (SessionFields, error) {
	var out SessionFields
	if sessionID == "" {
		return out, ErrInvalidRequest
	}

	var cmd *redis.MapStringStringCmd
	err := r.policy.Do(ctx, retry.OpRead, func(ctx context.Context) error {
		cmd = r.rdb.HGetAll(ctx, SessionKey(sessionID))
		fields, err := cmd.Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return redis.Nil
		}
		return nil
	})
	if err != nil {
		return SessionFields{}, notFound(err)
	}
	if err := cmd.Scan(&out); err != nil {
		return SessionFields{}, fmt.Errorf("%w: session hash: %v", ErrUnexpectedReply, err)
	}
	return out, nil
}

// ReadByEmail follows the email index to a session hash. A collision on the
// truncated hash shows up as a profile whose subject differs from email and
// is reported as ErrNotFound.
//
//	Performance: 1 HGET + 1 HGETALL.
func (r *Reader) ReadByEmail(ctx context.Context, email string) (SessionFields, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return SessionFields{}, ErrInvalidRequest
	}

	var sessionID string
	err := r.policy.Do(ctx, retry.OpRead, func(ctx context.Context) error {
		v, err := r.rdb.HGet(ctx, EmailIndexKey(email), "status").Result()
		if err != nil {
			return err
		}
		sessionID = v
		return nil
	})
	if err != nil {
		return SessionFields{}, notFound(err)
	}
	if sessionID == "" {
		return SessionFields{}, ErrNotFound
	}

	profile, err := r.ReadProfile(ctx, sessionID)
	if err != nil {
		return SessionFields{}, err
	}
	if NormalizeEmail(profile.Sub) != email {
		r.logger.Debug("email index collision", zap.String("index", EmailIndexKey(email)))
		return SessionFields{}, ErrNotFound
	}
	return profile, nil
}

// ReadInactiveList scans off:* markers and returns each marker with the
// keys it owns: s:{sid}, ra:{sid} and re:{jti}. The scan is cursor based and
// reflects the keyspace loosely; keys created mid-scan may be missed.
//
//	Performance: SCAN pages of Config.ScanCount + 1 MGET per non-empty page.
func (r *Reader) ReadInactiveList(ctx context.Context) ([]string, error) {
	keys := make([]string, 0)
	var cursor uint64

	for {
		var (
			page []string
			next uint64
		)
		err := r.policy.Do(ctx, retry.OpRead, func(ctx context.Context) error {
			var err error
			page, next, err = r.rdb.Scan(ctx, cursor, inactivePattern, r.cfg.ScanCount).Result()
			return err
		})
		if err != nil {
			return nil, err
		}

		if len(page) > 0 {
			var jtis []interface{}
			err := r.policy.Do(ctx, retry.OpRead, func(ctx context.Context) error {
				var err error
				jtis, err = r.rdb.MGet(ctx, page...).Result()
				return err
			})
			if err != nil {
				return nil, err
			}
			for i, marker := range page {
				sessionID := sessionIDFromInactiveKey(marker)
				if sessionID == "" {
					continue
				}
				keys = append(keys, marker, SessionKey(sessionID), RateKey(sessionID))
				if i < len(jtis) {
					if jti, ok := jtis[i].(string); ok && jti != "" {
						keys = append(keys, RefreshKey(jti))
					}
				}
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

// ReadMagicLink reports whether token is still redeemable.
//
//	Performance: 1 EXISTS.
func (r *Reader) ReadMagicLink(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, ErrInvalidRequest
	}
	var n int64
	err := r.policy.Do(ctx, retry.OpRead, func(ctx context.Context) error {
		var err error
		n, err = r.rdb.Exists(ctx, token).Result()
		return err
	})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReadRefreshExists returns the refresh key when the record is live. It is
// the gate before any refresh-token action.
//
//	Performance: 1 EXISTS.
func (r *Reader) ReadRefreshExists(ctx context.Context, jti string) (string, error) {
	if jti == "" {
		return "", ErrInvalidRequest
	}
	key := RefreshKey(jti)
	var n int64
	err := r.policy.Do(ctx, retry.OpRead, func(ctx context.Context) error {
		var err error
		n, err = r.rdb.Exists(ctx, key).Result()
		return err
	})
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", ErrNotFound
	}
	return key, nil
}

// ReadRefreshRecord decodes the record stored at re:{jti}.
//
//	Performance: 1 GET.
func (r *Reader) ReadRefreshRecord(ctx context.Context, jti string) (RefreshRecord, error) {
	if jti == "" {
		return RefreshRecord{}, ErrInvalidRequest
	}
	var raw []byte
	err := r.policy.Do(ctx, retry.OpRead, func(ctx context.Context) error {
		var err error
		raw, err = r.rdb.Get(ctx, RefreshKey(jti)).Bytes()
		return err
	})
	if err != nil {
		return RefreshRecord{}, notFound(err)
	}

	var rec RefreshRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return RefreshRecord{}, fmt.Errorf("%w: refresh record: %v", ErrUnexpectedReply, err)
	}
	return rec, nil
}

// ReadAccessClaimsFromRefresh gates on the refresh record, then reads the
// fields needed for a replacement access token from the session it names.
//
//	Performance: 1 GET + 1 HMGET.
func (r *Reader) ReadAccessClaimsFromRefresh(ctx context.Context, jti string) (AccessSeed, error) {
	rec, err := r.ReadRefreshRecord(ctx, jti)
	if err != nil {
		return AccessSeed{}, err
	}
	if rec.SessionID == "" {
		return AccessSeed{}, ErrNotFound
	}

	var vals []interface{}
	err = r.policy.Do(ctx, retry.OpRead, func(ctx context.Context) error {
		var err error
		vals, err = r.rdb.HMGet(ctx, SessionKey(rec.SessionID), "sub", "role", "session_id", "status").Result()
		return err
	})
	if err != nil {
		return AccessSeed{}, notFound(err)
	}

	seed := AccessSeed{}
	for i, dst := range []*string{&seed.Sub, &seed.Role, &seed.SessionID} {
		s, ok := vals[i].(string)
		if !ok || s == "" {
			return AccessSeed{}, ErrNotFound
		}
		*dst = s
	}
	seed.Status, _ = vals[3].(string)
	return seed, nil
}

// ReadRateCount returns the current admission count for a session.
//
//	Performance: 1 GET.
func (r *Reader) ReadRateCount(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, ErrInvalidRequest
	}
	var n int64
	err := r.policy.Do(ctx, retry.OpRead, func(ctx context.Context) error {
		var err error
		n, err = r.rdb.Get(ctx, RateKey(sessionID)).Int64()
		return err
	})
	if err != nil {
		return 0, notFound(err)
	}
	return n, nil
}

func notFound(err error) error {
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	return err
}
