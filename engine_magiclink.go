package authcache

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrEthical07/authcache/cache"
	"github.com/MrEthical07/authcache/internal"
	"go.uber.org/zap"
)

// RequestMagicLink sends a single-use login token to a registered email.
//
// The token is the stored random part followed by the sealed email, so
// consuming it needs no extra lookup. Unknown emails return nil without
// sending anything, which keeps the endpoint from revealing accounts.
func (e *Engine) RequestMagicLink(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if !e.config.MagicLink.Enabled {
		return ErrMagicLinkDisabled
	}
	if e.sender == nil {
		return ErrSenderRequired
	}
	email = cache.NormalizeEmail(email)
	if !validEmail(email) {
		return ErrInvalidRequest
	}

	acct, err := e.findAccount(ctx, email)
	if err != nil {
		return err
	}
	if !acct.found {
		e.metricInc(MetricMagicLinkUnknownEmail)
		e.emitAudit(ctx, auditEventMagicLinkRequest, false, email, "", ErrUserNotFound, nil)
		return nil
	}

	raw, err := internal.NewMagicLinkToken()
	if err != nil {
		return err
	}
	sealed, err := e.linkBox.Seal(email)
	if err != nil {
		return err
	}
	if err := e.cache.Writer.CreateMagicLink(ctx, raw); err != nil {
		return storeError(err)
	}

	if err := e.sender.Send(ctx, email, raw+"."+sealed); err != nil {
		if _, derr := e.cache.Deleter.ConsumeMagicLink(ctx, raw); derr != nil {
			e.logger.Warn("undelivered magic link not removed", zap.Error(derr))
		}
		e.emitAudit(ctx, auditEventMagicLinkRequest, false, email, "", err, nil)
		return fmt.Errorf("magic link delivery: %w", err)
	}

	e.metricInc(MetricMagicLinkRequested)
	e.emitAudit(ctx, auditEventMagicLinkRequest, true, email, "", nil, nil)
	return nil
}

// ConsumeMagicLink redeems a token from RequestMagicLink and issues
// tokens. Only the first redemption within the link TTL succeeds.
func (e *Engine) ConsumeMagicLink(ctx context.Context, token string) (*Session, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if !e.config.MagicLink.Enabled {
		return nil, ErrMagicLinkDisabled
	}

	raw, email, err := e.openMagicLink(token)
	if err != nil {
		return nil, e.magicLinkFailure(ctx, "", ErrMagicLinkInvalid, "malformed")
	}
	consumed, err := e.cache.Deleter.ConsumeMagicLink(ctx, raw)
	if err != nil {
		return nil, e.magicLinkFailure(ctx, email, storeError(err), "store")
	}
	if !consumed {
		return nil, e.magicLinkFailure(ctx, email, ErrMagicLinkInvalid, "unknown_or_used")
	}

	acct, err := e.findAccount(ctx, email)
	if err != nil {
		return nil, e.magicLinkFailure(ctx, email, err, "lookup_failed")
	}
	if !acct.found {
		return nil, e.magicLinkFailure(ctx, email, ErrUserNotFound, "account_gone")
	}
	res, err := e.startSession(ctx, email, acct, loginMethodMagicLink)
	if err != nil {
		return nil, e.magicLinkFailure(ctx, email, err, "issue_failed")
	}

	e.metricInc(MetricMagicLinkConsumed)
	e.emitAudit(ctx, auditEventMagicLinkConsume, true, email, res.SessionID, nil, nil)
	return sessionFromIssue(res), nil
}

func (e *Engine) openMagicLink(token string) (string, string, error) {
	cut := strings.LastIndexByte(token, '.')
	if cut <= 0 || cut == len(token)-1 {
		return "", "", ErrMagicLinkInvalid
	}
	raw, sealed := token[:cut], token[cut+1:]
	email, err := e.linkBox.Open(sealed)
	if err != nil || email == "" {
		return "", "", ErrMagicLinkInvalid
	}
	return raw, email, nil
}

func (e *Engine) magicLinkFailure(ctx context.Context, email string, err error, reason string) error {
	e.metricInc(MetricMagicLinkInvalid)
	e.emitAudit(ctx, auditEventMagicLinkConsume, false, email, "", err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return err
}
