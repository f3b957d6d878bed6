package flows

import (
	"context"

	"github.com/MrEthical07/authcache/cache"
	"github.com/MrEthical07/authcache/jwt"
)

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow.
type Deps struct {
	Issue   IssueDeps
	Refresh RefreshDeps
	Logout  LogoutDeps
}

// TokenMinter mints the two token kinds. *jwt.Manager satisfies it.
type TokenMinter interface {
	CreateAccess(jwt.AccessInput) (string, error)
	CreateRefresh(jwt.RefreshInput) (string, error)
}

// RefreshParser reads refresh tokens. *jwt.Manager satisfies it.
type RefreshParser interface {
	ParseRefresh(string) (*jwt.RefreshClaims, error)
}

// SessionWriter is the write side used by issuance and refresh.
// *cache.Writer satisfies it.
type SessionWriter interface {
	CreateUserSession(ctx context.Context, req cache.NewSession) (cache.RateDecision, error)
	CreateRefreshRecord(ctx context.Context, rec cache.RefreshRecord) error
	CheckAndIncrementRate(ctx context.Context, req cache.RateCheck) (cache.RateDecision, error)
}
