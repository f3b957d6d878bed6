package authcache

import "errors"

var (
	// ErrSessionTerminated is returned when the session was revoked by the
	// rate ceiling, marked inactive, or no longer exists.
	ErrSessionTerminated = errors.New("session terminated")
	// ErrRefreshInvalid is returned when a refresh token parses but its
	// record is gone, or when it cannot be parsed at all.
	ErrRefreshInvalid = errors.New("refresh token invalid")
	// ErrRefreshExpired is returned for a well-formed refresh token past exp.
	ErrRefreshExpired = errors.New("refresh token expired")
	// ErrTokenInvalid is returned by VerifyAccess for bad signatures and envelopes.
	ErrTokenInvalid = errors.New("access token invalid")
	// ErrTokenExpired is returned by VerifyAccess once exp has passed.
	ErrTokenExpired = errors.New("access token expired")
	// ErrInvalidCredentials is returned for unknown accounts and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountExists is returned by Signup when the email is already registered.
	ErrAccountExists = errors.New("account already exists")
	// ErrUserNotFound is returned when no cached or durable profile exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrMagicLinkInvalid is returned for unknown, consumed or expired magic links.
	ErrMagicLinkInvalid = errors.New("magic link invalid")
	// ErrInvalidRequest is returned for requests missing required fields.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrStoreUnavailable is returned when the shared store failed after retries.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrTokenIssue is returned when minting a token failed. No session
	// state is left behind.
	ErrTokenIssue = errors.New("token issuance failed")
	// ErrEngineNotReady is returned when an Engine method is called on a
	// nil or partially built engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrMagicLinkDisabled is returned when Config.MagicLink.Enabled is false.
	ErrMagicLinkDisabled = errors.New("magic link login disabled")
	// ErrSenderRequired is returned by RequestMagicLink without a configured sender.
	ErrSenderRequired = errors.New("magic link sender not configured")
)
