package cache

import "time"

const (
	StatusActive   = "on"
	StatusInactive = "off"
)

// SessionFields is the field map stored at s:{session_id}.
type SessionFields struct {
	SessionID   string `redis:"session_id"`
	JTI         string `redis:"jti"`
	Sub         string `redis:"sub"`
	Role        string `redis:"role"`
	Status      string `redis:"status"`
	LoginMethod string `redis:"login_method"`
	Data        string `redis:"data"`
	CreatedAt   int64  `redis:"created_at"`
}

func (f SessionFields) pairs() []interface{} {
	return []interface{}{
		"session_id", f.SessionID,
		"jti", f.JTI,
		"sub", f.Sub,
		"role", f.Role,
		"status", f.Status,
		"login_method", f.LoginMethod,
		"data", f.Data,
		"created_at", f.CreatedAt,
	}
}

// RefreshRecord is the JSON value stored at re:{jti}. TTL selects the key
// expiry and falls back to Config.RefreshTTL when zero.
type RefreshRecord struct {
	JTI       string        `json:"jti"`
	SessionID string        `json:"session_id"`
	Sub       string        `json:"sub"`
	Role      string        `json:"role"`
	IssuedAt  int64         `json:"iat"`
	ExpiresAt int64         `json:"exp"`
	TTL       time.Duration `json:"-"`
}

// AccessSeed is the subset of session fields needed to mint a replacement
// access token.
type AccessSeed struct {
	Sub       string
	Role      string
	SessionID string
	Status    string
}

// RateCheck identifies the counter to bump and the session to revoke when
// the bump is refused. Limit falls back to Config.RateLimit when zero.
type RateCheck struct {
	SessionID string
	JTI       string
	Limit     int64
}

// RateDecision is the admission outcome. Count is zero when denied.
type RateDecision struct {
	Allowed bool
	Count   int64
}

// NewSession is the compound issuance request.
type NewSession struct {
	Session SessionFields
	Refresh RefreshRecord
	Limit   int64
}

// RevokeRequest names the state to drop. Email is optional; when set, the
// email index is dropped too if it still points at SessionID.
type RevokeRequest struct {
	JTI       string
	SessionID string
	Email     string
}
