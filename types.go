package authcache

import (
	"context"
	"time"

	"github.com/MrEthical07/authcache/password"
	"github.com/MrEthical07/authcache/profile"
)

// Session is returned by every issuing operation. RefreshToken is empty
// after a refresh exchange unless rotation is enabled.
type Session struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
	Sub          string
	Role         string
	// Reissued is true when an existing cached session was handed new
	// tokens instead of a new session being created.
	Reissued bool
	// Count is the session's request count after this operation.
	Count int64
}

// Identity is the verified content of an access token.
type Identity struct {
	Sub       string    `json:"sub"`
	Role      string    `json:"role"`
	SessionID string    `json:"session_id"`
	JTI       string    `json:"jti"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignupRequest creates a local account. Email and Password are required;
// Role defaults to Config.Profile.DefaultRole.
type SignupRequest struct {
	Email    string
	Password string
	Username string
	Name     string
	Phone    string
	Role     string
}

// OAuthIdentity is what the caller's OAuth callback handler extracted
// from the provider. The engine never talks to the provider itself.
type OAuthIdentity struct {
	Provider string
	Email    string
	Name     string
	Picture  string
	Phone    string
}

// MagicLinkSender delivers a magic link token to an address. Building the
// URL and choosing the transport are the sender's business.
type MagicLinkSender interface {
	Send(ctx context.Context, to, token string) error
}

// MagicLinkSenderFunc adapts a function to [MagicLinkSender].
type MagicLinkSenderFunc func(ctx context.Context, to, token string) error

func (f MagicLinkSenderFunc) Send(ctx context.Context, to, token string) error {
	return f(ctx, to, token)
}

// Profile is the decoded user profile carried in the session hash.
type Profile = profile.Profile

// ProfileStore is the durable write-through store for profiles.
type ProfileStore = profile.Store

// PasswordVerifier hashes and checks passwords.
type PasswordVerifier = password.Verifier
