package authcache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/authcache/cache"
	"github.com/MrEthical07/authcache/internal/flows"
	"github.com/MrEthical07/authcache/password"
	"github.com/MrEthical07/authcache/profile"
	"go.uber.org/zap"
)

const (
	loginMethodPassword  = "password"
	loginMethodMagicLink = "magic_link"
	loginMethodOAuth     = "oauth_"
	providerLocal        = "local"
)

// account is what the engine knows about an email before issuing: a live
// cached session to reuse, or only the sealed profile blob.
type account struct {
	found  bool
	cached *cache.SessionFields
	blob   string
	role   string
}

// Signup creates a local account and its first session.
//
// The email must not be registered in the cache or the durable store.
// With a profile store configured the account is written through before
// Signup returns; a failed write revokes the new session.
func (e *Engine) Signup(ctx context.Context, req SignupRequest) (*Session, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	email := cache.NormalizeEmail(req.Email)
	if !validEmail(email) || req.Password == "" {
		return nil, ErrInvalidRequest
	}

	acct, err := e.findAccount(ctx, email)
	if err != nil {
		e.emitAudit(ctx, auditEventSignup, false, email, "", err, nil)
		return nil, err
	}
	if acct.found {
		e.metricInc(MetricSignupDuplicate)
		e.emitAudit(ctx, auditEventSignup, false, email, "", ErrAccountExists, nil)
		return nil, ErrAccountExists
	}

	hash, err := e.verifier.Hash(req.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordLength) {
			return nil, errors.Join(ErrInvalidRequest, err)
		}
		return nil, err
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = e.config.Profile.DefaultRole
	}
	p := Profile{
		Email:        email,
		Username:     strings.TrimSpace(req.Username),
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		Provider:     providerLocal,
		Role:         role,
		LoginMethod:  loginMethodPassword,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	res, err := e.createAccount(ctx, p, loginMethodPassword)
	if err != nil {
		e.emitAudit(ctx, auditEventSignup, false, email, res.SessionID, err, nil)
		return nil, err
	}
	e.metricInc(MetricSignupSuccess)
	e.emitAudit(ctx, auditEventSignup, true, email, res.SessionID, nil, nil)
	return sessionFromIssue(res), nil
}

// Login verifies a password and issues tokens.
//
// A live cached session for the email is reused and handed fresh tokens;
// that request counts against its ceiling. Otherwise the profile is loaded
// from the durable store and a new session is created. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, email, plain string) (*Session, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	email = cache.NormalizeEmail(email)
	if email == "" || plain == "" {
		return nil, e.loginFailure(ctx, email, "", ErrInvalidCredentials, "empty_input")
	}

	acct, err := e.findAccount(ctx, email)
	if err != nil {
		return nil, e.loginFailure(ctx, email, "", err, "lookup_failed")
	}
	if !acct.found {
		return nil, e.loginFailure(ctx, email, "", ErrInvalidCredentials, "unknown_email")
	}

	p, err := e.codec.Decode(acct.blob)
	if err != nil {
		e.logger.Error("profile blob unreadable", zap.String("sub", email), zap.Error(err))
		return nil, e.loginFailure(ctx, email, "", ErrInvalidCredentials, "profile_corrupt")
	}
	if p.PasswordHash == "" {
		return nil, e.loginFailure(ctx, email, "", ErrInvalidCredentials, "no_password")
	}
	ok, err := e.verifier.Verify(plain, p.PasswordHash)
	if err != nil && !errors.Is(err, password.ErrPasswordLength) {
		e.logger.Warn("stored password hash rejected", zap.String("sub", email), zap.Error(err))
	}
	if err != nil || !ok {
		return nil, e.loginFailure(ctx, email, "", ErrInvalidCredentials, "password_mismatch")
	}

	res, err := e.startSession(ctx, email, acct, loginMethodPassword)
	if err != nil {
		return nil, e.loginFailure(ctx, email, res.SessionID, err, "issue_failed")
	}

	if e.config.Password.UpgradeOnLogin && e.verifier.NeedsRehash(p.PasswordHash) {
		e.upgradeHash(ctx, res.SessionID, p, plain)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, email, res.SessionID, nil, func() map[string]string {
		return map[string]string{"method": loginMethodPassword, "reissued": boolString(res.Reissued)}
	})
	return sessionFromIssue(res), nil
}

// OAuthCallback issues tokens for an identity the caller already obtained
// from a provider. Unknown emails become new accounts with login method
// "oauth_<provider>"; known ones are reissued or get a new session.
func (e *Engine) OAuthCallback(ctx context.Context, id OAuthIdentity) (*Session, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	email := cache.NormalizeEmail(id.Email)
	provider := strings.ToLower(strings.TrimSpace(id.Provider))
	if !validEmail(email) || provider == "" {
		return nil, ErrInvalidRequest
	}
	method := loginMethodOAuth + provider

	acct, err := e.findAccount(ctx, email)
	if err != nil {
		e.emitAudit(ctx, auditEventOAuthLogin, false, email, "", err, nil)
		return nil, err
	}

	var (
		res     flows.IssueResult
		created bool
	)
	if acct.found {
		res, err = e.startSession(ctx, email, acct, method)
	} else {
		created = true
		res, err = e.createAccount(ctx, Profile{
			Email:       email,
			Name:        strings.TrimSpace(id.Name),
			Picture:     strings.TrimSpace(id.Picture),
			Phone:       strings.TrimSpace(id.Phone),
			Provider:    provider,
			Role:        e.config.Profile.DefaultRole,
			LoginMethod: method,
			CreatedAt:   time.Now().UTC(),
		}, method)
	}
	if err != nil {
		e.emitAudit(ctx, auditEventOAuthLogin, false, email, res.SessionID, err, nil)
		return nil, err
	}

	e.metricInc(MetricOAuthLogin)
	if created {
		e.metricInc(MetricSignupSuccess)
	}
	e.emitAudit(ctx, auditEventOAuthLogin, true, email, res.SessionID, nil, func() map[string]string {
		return map[string]string{"provider": provider, "created": boolString(created)}
	})
	return sessionFromIssue(res), nil
}

// createAccount seals p, creates its first session and writes it through.
func (e *Engine) createAccount(ctx context.Context, p Profile, method string) (flows.IssueResult, error) {
	blob, err := e.codec.Encode(p)
	if err != nil {
		return flows.IssueResult{}, err
	}
	res := e.flows.Issue(ctx, flows.IssueInput{
		Sub:         p.Email,
		Role:        p.Role,
		LoginMethod: method,
		Data:        blob,
	})
	if err := e.issueError(res); err != nil {
		return res, err
	}
	e.metricInc(MetricSessionCreated)

	if err := e.writeThrough(ctx, res.SessionID, p.Email, p.Role, blob, p.CreatedAt); err != nil {
		if _, rerr := e.cache.Deleter.Revoke(ctx, cache.RevokeRequest{
			JTI:       res.JTI,
			SessionID: res.SessionID,
			Email:     p.Email,
		}); rerr != nil {
			e.logger.Error("revoke after failed write-through", zap.String("session_id", res.SessionID), zap.Error(rerr))
		}
		return res, storeError(err)
	}
	return res, nil
}

// startSession reuses a live cached session or creates a new one from the
// account's blob.
func (e *Engine) startSession(ctx context.Context, email string, acct account, method string) (flows.IssueResult, error) {
	if acct.cached != nil {
		res := e.flows.Reissue(ctx, *acct.cached)
		if err := e.issueError(res); err != nil {
			return res, err
		}
		e.metricInc(MetricSessionReissued)
		return res, nil
	}

	res := e.flows.Issue(ctx, flows.IssueInput{
		Sub:         email,
		Role:        acct.role,
		LoginMethod: method,
		Data:        acct.blob,
	})
	if err := e.issueError(res); err != nil {
		return res, err
	}
	e.metricInc(MetricSessionCreated)
	return res, nil
}

// findAccount looks in the cache first, then in the durable store. An
// inactive cached session still supplies the blob but is not reused.
func (e *Engine) findAccount(ctx context.Context, email string) (account, error) {
	sess, err := e.cache.Reader.ReadByEmail(ctx, email)
	switch {
	case err == nil:
		acct := account{found: true, blob: sess.Data, role: sess.Role}
		if sess.Status != cache.StatusInactive {
			acct.cached = &sess
		}
		return acct, nil
	case errors.Is(err, cache.ErrNotFound):
	default:
		return account{}, storeError(err)
	}

	if e.profiles == nil {
		return account{}, nil
	}
	rec, err := e.profiles.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return account{found: true, blob: rec.Blob, role: rec.Role}, nil
	case errors.Is(err, profile.ErrNotFound):
		return account{}, nil
	default:
		return account{}, storeError(err)
	}
}

func (e *Engine) writeThrough(ctx context.Context, sessionID, email, role, blob string, createdAt time.Time) error {
	if e.profiles == nil {
		return nil
	}
	now := time.Now().UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	return e.profiles.Upsert(ctx, profile.Record{
		Email:     email,
		SessionID: sessionID,
		Role:      role,
		Blob:      blob,
		CreatedAt: createdAt,
		UpdatedAt: now,
	})
}

// upgradeHash rewrites a legacy or weaker hash. Failures are logged only;
// the login already succeeded.
func (e *Engine) upgradeHash(ctx context.Context, sessionID string, p Profile, plain string) {
	hash, err := e.verifier.Hash(plain)
	if err != nil {
		e.logger.Warn("password rehash failed", zap.String("sub", p.Email), zap.Error(err))
		return
	}
	p.PasswordHash = hash
	blob, err := e.codec.Encode(p)
	if err != nil {
		e.logger.Warn("password rehash encode failed", zap.String("sub", p.Email), zap.Error(err))
		return
	}
	if _, err := e.cache.Updater.UpdateField(ctx, sessionID, "data", blob); err != nil {
		e.logger.Warn("password rehash cache update failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	if err := e.writeThrough(ctx, sessionID, p.Email, p.Role, blob, p.CreatedAt); err != nil {
		e.logger.Warn("password rehash write-through failed", zap.String("sub", p.Email), zap.Error(err))
		return
	}
	e.metricInc(MetricPasswordRehash)
}

func (e *Engine) loginFailure(ctx context.Context, email, sessionID string, err error, reason string) error {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, email, sessionID, err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return err
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
