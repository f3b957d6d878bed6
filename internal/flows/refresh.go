package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcache/cache"
	"github.com/MrEthical07/authcache/jwt"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureExpired
	RefreshFailureRecordMissing
	RefreshFailureInactive
	RefreshFailureStore
	RefreshFailureRateLimited
	RefreshFailureIssueAccess
	RefreshFailureRotate
)

// RefreshResult carries either the new tokens or failure metadata.
// RefreshToken is empty unless rotation is enabled.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	SessionID    string
	Sub          string
	Role         string
	JTI          string
	AccessToken  string
	RefreshToken string
	Count        int64
}

// RefreshReader is the read side of the refresh exchange.
type RefreshReader interface {
	ReadAccessClaimsFromRefresh(ctx context.Context, jti string) (cache.AccessSeed, error)
}

// RefreshRotator replaces the refresh record during rotation.
type RefreshRotator interface {
	UpdateField(ctx context.Context, sessionID, field, value string) (bool, error)
}

type RefreshDropper interface {
	DeleteRefresh(ctx context.Context, jti string) error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Parser     RefreshParser
	Tokens     TokenMinter
	Reader     RefreshReader
	Writer     SessionWriter
	Updater    RefreshRotator
	Deleter    RefreshDropper
	NewTokenID func() string
	Now        func() time.Time
	RefreshTTL time.Duration
	RateLimit  int64
	Rotate     bool
	Warn       func(string, ...any)
}

// RunRefresh exchanges a refresh token for a new access token. The
// exchange counts against the session's ceiling like any other request.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	claims, err := deps.Parser.ParseRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return RefreshResult{Failure: RefreshFailureExpired, Err: err}
		}
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}

	seed, err := deps.Reader.ReadAccessClaimsFromRefresh(ctx, claims.ID)
	if err != nil {
		kind := RefreshFailureStore
		if errors.Is(err, cache.ErrNotFound) {
			kind = RefreshFailureRecordMissing
		}
		return RefreshResult{Failure: kind, Err: err, SessionID: claims.SessionID, JTI: claims.ID}
	}
	res := RefreshResult{SessionID: seed.SessionID, Sub: seed.Sub, Role: seed.Role, JTI: claims.ID}
	if seed.SessionID != claims.SessionID {
		res.Failure = RefreshFailureRecordMissing
		res.Err = errors.New("refresh record names another session")
		return res
	}
	if seed.Status == cache.StatusInactive {
		res.Failure = RefreshFailureInactive
		res.Err = errors.New("session inactive")
		return res
	}

	dec, err := deps.Writer.CheckAndIncrementRate(ctx, cache.RateCheck{
		SessionID: seed.SessionID,
		JTI:       claims.ID,
		Limit:     deps.RateLimit,
	})
	if err != nil {
		res.Failure = RefreshFailureStore
		res.Err = err
		return res
	}
	if !dec.Allowed {
		res.Failure = RefreshFailureRateLimited
		res.Err = errors.New("rate ceiling reached")
		return res
	}
	res.Count = dec.Count

	access, err := deps.Tokens.CreateAccess(jwt.AccessInput{
		Sub:       seed.Sub,
		Role:      seed.Role,
		JTI:       claims.ID,
		SessionID: seed.SessionID,
	})
	if err != nil {
		res.Failure = RefreshFailureIssueAccess
		res.Err = err
		return res
	}
	res.AccessToken = access

	if !deps.Rotate {
		return res
	}
	return rotate(ctx, res, deps)
}

// rotate moves the session to a new jti: new record first, then the
// session pointer, then the old record. A crash between steps leaves at
// most one extra record that expires on its own.
func rotate(ctx context.Context, res RefreshResult, deps RefreshDeps) RefreshResult {
	oldJTI := res.JTI
	newJTI := deps.NewTokenID()
	now := time.Now()
	if deps.Now != nil {
		now = deps.Now()
	}

	refresh, err := deps.Tokens.CreateRefresh(jwt.RefreshInput{Sub: res.Sub, Role: res.Role, JTI: newJTI, SessionID: res.SessionID})
	if err != nil {
		return rotateFailure(res, err)
	}
	err = deps.Writer.CreateRefreshRecord(ctx, cache.RefreshRecord{
		JTI:       newJTI,
		SessionID: res.SessionID,
		Sub:       res.Sub,
		Role:      res.Role,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(deps.RefreshTTL).Unix(),
		TTL:       deps.RefreshTTL,
	})
	if err != nil {
		return rotateFailure(res, err)
	}
	ok, err := deps.Updater.UpdateField(ctx, res.SessionID, "jti", newJTI)
	if err != nil || !ok {
		_ = deps.Deleter.DeleteRefresh(ctx, newJTI)
		if err == nil {
			res.Failure = RefreshFailureRecordMissing
			res.Err = errors.New("session vanished during rotation")
			res.AccessToken = ""
			return res
		}
		return rotateFailure(res, err)
	}
	if err := deps.Deleter.DeleteRefresh(ctx, oldJTI); err != nil && deps.Warn != nil {
		deps.Warn("authcache: old refresh record not removed after rotation", "jti", oldJTI, "error", err)
	}

	res.JTI = newJTI
	res.RefreshToken = refresh
	return res
}

func rotateFailure(res RefreshResult, err error) RefreshResult {
	res.Failure = RefreshFailureRotate
	res.Err = err
	res.AccessToken = ""
	return res
}
