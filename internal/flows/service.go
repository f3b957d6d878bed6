package flows

import (
	"context"

	"github.com/MrEthical07/authcache/cache"
)

// Service is the flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Issue.Writer != nil && s.deps.Refresh.Parser != nil && s.deps.Logout.Deleter != nil
}

func (s Service) Issue(ctx context.Context, in IssueInput) IssueResult {
	return RunIssue(ctx, in, s.deps.Issue)
}

func (s Service) Reissue(ctx context.Context, existing cache.SessionFields) IssueResult {
	return RunReissue(ctx, existing, s.deps.Issue)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, refreshToken string) LogoutResult {
	return RunLogout(ctx, refreshToken, s.deps.Logout)
}
