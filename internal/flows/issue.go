package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcache/cache"
	"github.com/MrEthical07/authcache/jwt"
)

// IssueFailureKind classifies issuance failures for root-level mapping.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureInvalid
	IssueFailureMint
	IssueFailureStore
	IssueFailureDenied
)

// IssueInput describes a brand-new session.
type IssueInput struct {
	Sub         string
	Role        string
	LoginMethod string
	// Data is the sealed profile blob stored in the session hash.
	Data string
}

// IssueResult carries either the token pair or failure metadata.
type IssueResult struct {
	Failure      IssueFailureKind
	Err          error
	SessionID    string
	JTI          string
	Sub          string
	Role         string
	AccessToken  string
	RefreshToken string
	Count        int64
	Reissued     bool
}

// IssueDeps captures issuance dependencies.
type IssueDeps struct {
	NewSessionID func() string
	NewTokenID   func() string
	Now          func() time.Time
	RefreshTTL   time.Duration
	RateLimit    int64
	Tokens       TokenMinter
	Writer       SessionWriter
}

// RunIssue mints both tokens first, then persists every piece of session
// state in one atomic create. A mint failure leaves the store untouched; a
// refusal from the store has already been compensated by the writer.
func RunIssue(ctx context.Context, in IssueInput, deps IssueDeps) IssueResult {
	if in.Sub == "" {
		return IssueResult{Failure: IssueFailureInvalid, Err: cache.ErrInvalidRequest}
	}
	now := deps.now()
	sid := deps.NewSessionID()
	jti := deps.NewTokenID()

	res := IssueResult{SessionID: sid, JTI: jti, Sub: in.Sub, Role: in.Role}
	if err := mint(&res, deps.Tokens); err != nil {
		res.Failure = IssueFailureMint
		res.Err = err
		return res
	}

	dec, err := deps.Writer.CreateUserSession(ctx, cache.NewSession{
		Session: cache.SessionFields{
			SessionID:   sid,
			JTI:         jti,
			Sub:         in.Sub,
			Role:        in.Role,
			Status:      cache.StatusActive,
			LoginMethod: in.LoginMethod,
			Data:        in.Data,
			CreatedAt:   now.Unix(),
		},
		Refresh: deps.record(jti, sid, in.Sub, in.Role, now),
		Limit:   deps.RateLimit,
	})
	if err != nil {
		return issueFailure(res, IssueFailureStore, err)
	}
	if !dec.Allowed {
		return issueFailure(res, IssueFailureDenied, errors.New("session creation refused"))
	}
	res.Count = dec.Count
	return res
}

// RunReissue hands a fresh token pair to an already cached session. The
// request counts against the session's ceiling; a refusal terminates it.
func RunReissue(ctx context.Context, existing cache.SessionFields, deps IssueDeps) IssueResult {
	if existing.SessionID == "" || existing.JTI == "" || existing.Sub == "" {
		return IssueResult{Failure: IssueFailureInvalid, Err: cache.ErrInvalidRequest}
	}
	if existing.Status == cache.StatusInactive {
		return IssueResult{
			Failure:   IssueFailureDenied,
			Err:       errors.New("session inactive"),
			SessionID: existing.SessionID,
			Sub:       existing.Sub,
		}
	}
	now := deps.now()
	res := IssueResult{
		SessionID: existing.SessionID,
		JTI:       existing.JTI,
		Sub:       existing.Sub,
		Role:      existing.Role,
		Reissued:  true,
	}
	if err := mint(&res, deps.Tokens); err != nil {
		res.Failure = IssueFailureMint
		res.Err = err
		return res
	}

	dec, err := deps.Writer.CheckAndIncrementRate(ctx, cache.RateCheck{
		SessionID: existing.SessionID,
		JTI:       existing.JTI,
		Limit:     deps.RateLimit,
	})
	if err != nil {
		return issueFailure(res, IssueFailureStore, err)
	}
	if !dec.Allowed {
		return issueFailure(res, IssueFailureDenied, errors.New("rate ceiling reached"))
	}
	res.Count = dec.Count

	// The record may have expired while the session lived on; rewriting it
	// also restarts its TTL to match the new refresh token.
	rec := deps.record(existing.JTI, existing.SessionID, existing.Sub, existing.Role, now)
	if err := deps.Writer.CreateRefreshRecord(ctx, rec); err != nil {
		return issueFailure(res, IssueFailureStore, err)
	}
	return res
}

func mint(res *IssueResult, tokens TokenMinter) error {
	access, err := tokens.CreateAccess(jwt.AccessInput{
		Sub:       res.Sub,
		Role:      res.Role,
		JTI:       res.JTI,
		SessionID: res.SessionID,
	})
	if err != nil {
		return err
	}
	refresh, err := tokens.CreateRefresh(jwt.RefreshInput{
		Sub:       res.Sub,
		Role:      res.Role,
		JTI:       res.JTI,
		SessionID: res.SessionID,
	})
	if err != nil {
		return err
	}
	res.AccessToken = access
	res.RefreshToken = refresh
	return nil
}

func issueFailure(res IssueResult, kind IssueFailureKind, err error) IssueResult {
	res.Failure = kind
	res.Err = err
	res.AccessToken = ""
	res.RefreshToken = ""
	return res
}

func (d IssueDeps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

func (d IssueDeps) record(jti, sid, sub, role string, now time.Time) cache.RefreshRecord {
	return cache.RefreshRecord{
		JTI:       jti,
		SessionID: sid,
		Sub:       sub,
		Role:      role,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(d.RefreshTTL).Unix(),
		TTL:       d.RefreshTTL,
	}
}
