package authcache

import (
	"strings"
	"testing"
	"time"
)

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func TestLint_DefaultConfigHasNoHighFindings(t *testing.T) {
	cfg := defaultConfig()
	if high := cfg.Lint().BySeverity(LintHigh); len(high) != 0 {
		t.Fatalf("default config should have no HIGH findings, got %v", high.Codes())
	}
}

func TestLint_LargeLeeway(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.Leeway = 90 * time.Second
	if !containsCode(cfg.Lint().Codes(), "leeway_large") {
		t.Error("expected leeway_large warning")
	}
}

func TestLint_LongAccessTTL(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.AccessTTL = 15 * time.Minute
	if !containsCode(cfg.Lint().Codes(), "access_ttl_long") {
		t.Error("expected access_ttl_long warning")
	}
}

func TestLint_LongRefreshTTL(t *testing.T) {
	cfg := defaultConfig()
	cfg.Cache.RefreshTTL = 30 * 24 * time.Hour
	if !containsCode(cfg.Lint().Codes(), "refresh_ttl_long") {
		t.Error("expected refresh_ttl_long warning")
	}
}

func TestLint_RevocationLag(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.AccessTTL = 2 * time.Hour
	cfg.Cache.RefreshTTL = 3 * time.Hour
	cfg.Cache.SessionTTL = 3 * time.Hour
	ws := cfg.Lint()
	if !containsCode(ws.Codes(), "revocation_lag") {
		t.Fatal("expected revocation_lag finding")
	}

	cfg.Session.StrictAccess = true
	if containsCode(cfg.Lint().Codes(), "revocation_lag") {
		t.Fatal("strict access removes the revocation lag")
	}
}

func TestLint_SealSecretAndAudit(t *testing.T) {
	cfg := defaultConfig()
	cfg.Audit.Enabled = false
	codes := cfg.Lint().Codes()
	if !containsCode(codes, "refresh_ids_clear") || !containsCode(codes, "audit_disabled") {
		t.Fatalf("expected refresh_ids_clear and audit_disabled, got %v", codes)
	}

	cfg.JWT.SealSecret = []byte("seal")
	cfg.Audit.Enabled = true
	codes = cfg.Lint().Codes()
	if containsCode(codes, "refresh_ids_clear") || containsCode(codes, "audit_disabled") {
		t.Fatalf("unexpected findings %v", codes)
	}
}

func TestLint_PasswordAndKeys(t *testing.T) {
	cfg := defaultConfig()
	cfg.Password.Memory = 16 * 1024
	cfg.Password.UpgradeOnLogin = false
	cfg.JWT.KeepKeys = 1
	codes := cfg.Lint().Codes()
	for _, want := range []string{"argon2_memory_low", "legacy_hash_kept", "rotation_breaks_tokens"} {
		if !containsCode(codes, want) {
			t.Errorf("expected %s in %v", want, codes)
		}
	}
}

func TestLintSeverityString(t *testing.T) {
	cases := map[LintSeverity]string{
		LintInfo:         "INFO",
		LintWarn:         "WARN",
		LintHigh:         "HIGH",
		LintSeverity(99): "UNKNOWN",
	}
	for sev, want := range cases {
		if got := sev.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", sev, got, want)
		}
	}
}

func TestLintAsError(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.Leeway = 90 * time.Second
	ws := cfg.Lint()

	if err := ws.AsError(LintHigh); err != nil {
		t.Fatalf("no HIGH findings expected, got %v", err)
	}
	err := ws.AsError(LintWarn)
	if err == nil {
		t.Fatal("expected error at WARN")
	}
	if !strings.Contains(err.Error(), "leeway_large") {
		t.Fatalf("error should name the code, got %v", err)
	}
}
