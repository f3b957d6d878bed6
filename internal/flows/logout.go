package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcache/cache"
)

type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureDecode
	LogoutFailureStore
)

type LogoutReader interface {
	ReadProfile(ctx context.Context, sessionID string) (cache.SessionFields, error)
}

type LogoutDeleter interface {
	Revoke(ctx context.Context, req cache.RevokeRequest) (int64, error)
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Parser  RefreshParser
	Reader  LogoutReader
	Deleter LogoutDeleter
}

type LogoutResult struct {
	Failure   LogoutFailureKind
	Err       error
	SessionID string
	Sub       string
	Removed   int64
}

// RunLogout revokes the session a refresh token belongs to. Logging out an
// already revoked session succeeds with Removed == 0.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	claims, err := deps.Parser.ParseRefresh(refreshToken)
	if err != nil {
		return LogoutResult{Failure: LogoutFailureDecode, Err: err}
	}
	res := LogoutResult{SessionID: claims.SessionID, Sub: claims.Subject}

	// The email lets the revoke script drop the index entry too. After
	// rotation the session's current jti supersedes the token's.
	email, jti := "", claims.ID
	sess, err := deps.Reader.ReadProfile(ctx, claims.SessionID)
	switch {
	case err == nil:
		email = sess.Sub
		if sess.JTI != "" {
			jti = sess.JTI
		}
	case errors.Is(err, cache.ErrNotFound):
	default:
		res.Failure = LogoutFailureStore
		res.Err = err
		return res
	}

	removed, err := deps.Deleter.Revoke(ctx, cache.RevokeRequest{
		JTI:       jti,
		SessionID: claims.SessionID,
		Email:     email,
	})
	if err != nil {
		res.Failure = LogoutFailureStore
		res.Err = err
		return res
	}
	res.Removed = removed
	return res
}
