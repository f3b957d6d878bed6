package authcache

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/MrEthical07/authcache/internal"
	internalaudit "github.com/MrEthical07/authcache/internal/audit"
	"github.com/MrEthical07/authcache/jwt"
	"go.uber.org/zap"
)

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes JSON-encoded events to an [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink logs events through a zap logger.
type ZapSink = internalaudit.ZapSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(logger)
}

const (
	auditEventSignup            = "signup"
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventOAuthLogin        = "oauth_login"
	auditEventRefreshSuccess    = "refresh_success"
	auditEventRefreshInvalid    = "refresh_invalid"
	auditEventSessionTerminated = "session_terminated"
	auditEventLogout            = "logout"
	auditEventMagicLinkRequest  = "magic_link_request"
	auditEventMagicLinkConsume  = "magic_link_consume"
	auditEventProfileUpdate     = "profile_update"
	auditEventDeactivate        = "session_deactivate"
	auditEventReap              = "inactive_reap"
)

// AuditErrorCode is the stable error label carried in [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrSessionTerminated  AuditErrorCode = "session_terminated"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrExpired            AuditErrorCode = "expired"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrMagicLinkInvalid   AuditErrorCode = "magic_link_invalid"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrTokenIssue         AuditErrorCode = "token_issue_failed"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	sub string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if ip := ClientIPFromContext(ctx); ip != "" {
		if metadata == nil {
			metadata = make(map[string]string, 2)
		}
		metadata["client_ip"] = ip
	}
	if ua := internal.Fingerprint(UserAgentFromContext(ctx)); ua != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["user_agent_fp"] = ua
	}
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Subject:   sub,
		SessionID: sessionID,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}
	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrSessionTerminated):
		return auditErrSessionTerminated
	case errors.Is(err, ErrRefreshExpired), errors.Is(err, ErrTokenExpired), errors.Is(err, jwt.ErrTokenExpired):
		return auditErrExpired
	case errors.Is(err, ErrRefreshInvalid), errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrMagicLinkInvalid):
		return auditErrMagicLinkInvalid
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrTokenIssue):
		return auditErrTokenIssue
	default:
		return auditErrInternal
	}
}
