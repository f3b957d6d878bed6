package internaldefs

import (
	"github.com/MrEthical07/authcache"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   authcache.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID   authcache.MetricID
	Name string
	Help string
}

// BucketCount is the number of latency buckets every histogram carries.
const BucketCount = 8

var CounterDefs = []CounterDef{
	{ID: authcache.MetricSignupSuccess, Name: "authcache_signup_success_total", Help: "Accounts created by signup or first OAuth login."},
	{ID: authcache.MetricSignupDuplicate, Name: "authcache_signup_duplicate_total", Help: "Signups rejected because the email is registered."},
	{ID: authcache.MetricLoginSuccess, Name: "authcache_login_success_total", Help: "Successful password logins."},
	{ID: authcache.MetricLoginFailure, Name: "authcache_login_failure_total", Help: "Failed password logins."},
	{ID: authcache.MetricOAuthLogin, Name: "authcache_oauth_login_total", Help: "Sessions issued from OAuth identities."},
	{ID: authcache.MetricRefreshSuccess, Name: "authcache_refresh_success_total", Help: "Successful refresh exchanges."},
	{ID: authcache.MetricRefreshFailure, Name: "authcache_refresh_failure_total", Help: "Failed refresh exchanges."},
	{ID: authcache.MetricRefreshRotated, Name: "authcache_refresh_rotated_total", Help: "Refresh tokens replaced during exchange."},
	{ID: authcache.MetricRateLimitHit, Name: "authcache_rate_limit_hit_total", Help: "Requests refused by the per-session ceiling."},
	{ID: authcache.MetricSessionCreated, Name: "authcache_session_created_total", Help: "Sessions created."},
	{ID: authcache.MetricSessionReissued, Name: "authcache_session_reissued_total", Help: "Token pairs reissued for cached sessions."},
	{ID: authcache.MetricSessionInvalidated, Name: "authcache_session_invalidated_total", Help: "Sessions revoked by logout or the ceiling."},
	{ID: authcache.MetricSessionDeactivated, Name: "authcache_session_deactivated_total", Help: "Sessions marked inactive."},
	{ID: authcache.MetricLogout, Name: "authcache_logout_total", Help: "Logout calls."},
	{ID: authcache.MetricMagicLinkRequested, Name: "authcache_magic_link_requested_total", Help: "Magic links delivered."},
	{ID: authcache.MetricMagicLinkUnknownEmail, Name: "authcache_magic_link_unknown_email_total", Help: "Magic link requests for unregistered emails."},
	{ID: authcache.MetricMagicLinkConsumed, Name: "authcache_magic_link_consumed_total", Help: "Magic links redeemed."},
	{ID: authcache.MetricMagicLinkInvalid, Name: "authcache_magic_link_invalid_total", Help: "Magic link redemptions refused."},
	{ID: authcache.MetricProfileUpdated, Name: "authcache_profile_updated_total", Help: "Profile updates applied."},
	{ID: authcache.MetricPasswordRehash, Name: "authcache_password_rehash_total", Help: "Password hashes upgraded on login."},
	{ID: authcache.MetricReapedKeys, Name: "authcache_reaped_keys_total", Help: "Keys removed by the inactive-session reaper."},
	{ID: authcache.MetricStoreRetry, Name: "authcache_store_retry_total", Help: "Store calls retried after a transient error."},
	{ID: authcache.MetricStoreOutOfMemory, Name: "authcache_store_oom_total", Help: "Store calls refused because Redis is out of memory."},
}

var HistogramDefs = []HistogramDef{
	{ID: authcache.MetricVerifyLatency, Name: "authcache_verify_latency_seconds", Help: "Access token verification latency."},
}

// HistogramUpperBounds are the bucket upper bounds in seconds. The last
// bucket is unbounded and has no entry.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// NormalizeBuckets pads or truncates a snapshot histogram to BucketCount.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
