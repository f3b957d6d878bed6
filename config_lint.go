package authcache

import (
	"fmt"
	"strings"
	"time"
)

// LintSeverity ranks lint findings.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is one finding. Code is stable and meant for tests and
// dashboards; Message is for humans.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings.
type LintResult []LintWarning

func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns findings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError folds findings at or above min into one error, or nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// Lint reports settings that are valid but risky. It never fails; use
// Validate for hard errors.
func (c Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if c.JWT.Leeway > time.Minute {
		add("leeway_large", LintWarn, "JWT leeway %s exceeds 1m", c.JWT.Leeway)
	}
	if c.JWT.AccessTTL > 10*time.Minute {
		add("access_ttl_long", LintWarn, "access tokens live %s", c.JWT.AccessTTL)
	}
	if c.Cache.RefreshTTL > 24*time.Hour {
		add("refresh_ttl_long", LintWarn, "refresh records live %s", c.Cache.RefreshTTL)
	}
	if c.Cache.RateLimit > 10000 {
		add("rate_limit_high", LintWarn, "per-session ceiling %d barely limits anything", c.Cache.RateLimit)
	}
	if len(c.JWT.SealSecret) == 0 {
		add("refresh_ids_clear", LintInfo, "refresh tokens carry jti and session_id in clear")
	}
	if !c.Session.StrictAccess && c.Cache.SessionTTL > 0 && c.JWT.AccessTTL > c.Cache.RateWindow {
		add("revocation_lag", LintHigh, "token-only verification with access TTL %s longer than the rate window", c.JWT.AccessTTL)
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "audit events are not emitted")
	}
	if c.Password.Memory < 64*1024 {
		add("argon2_memory_low", LintWarn, "argon2 memory %d KB below 64 MB", c.Password.Memory)
	}
	if !c.Password.UpgradeOnLogin {
		add("legacy_hash_kept", LintInfo, "bcrypt hashes are never upgraded")
	}
	if c.JWT.KeepKeys == 1 {
		add("rotation_breaks_tokens", LintWarn, "rotating keys invalidates every live access token")
	}
	return ws
}
