package authcache

import internalmetrics "github.com/MrEthical07/authcache/internal/metrics"

// MetricID identifies one counter in the in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	MetricSignupSuccess         = internalmetrics.MetricSignupSuccess
	MetricSignupDuplicate       = internalmetrics.MetricSignupDuplicate
	MetricLoginSuccess          = internalmetrics.MetricLoginSuccess
	MetricLoginFailure          = internalmetrics.MetricLoginFailure
	MetricOAuthLogin            = internalmetrics.MetricOAuthLogin
	MetricRefreshSuccess        = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure        = internalmetrics.MetricRefreshFailure
	MetricRefreshRotated        = internalmetrics.MetricRefreshRotated
	MetricRateLimitHit          = internalmetrics.MetricRateLimitHit
	MetricSessionCreated        = internalmetrics.MetricSessionCreated
	MetricSessionReissued       = internalmetrics.MetricSessionReissued
	MetricSessionInvalidated    = internalmetrics.MetricSessionInvalidated
	MetricSessionDeactivated    = internalmetrics.MetricSessionDeactivated
	MetricLogout                = internalmetrics.MetricLogout
	MetricMagicLinkRequested    = internalmetrics.MetricMagicLinkRequested
	MetricMagicLinkUnknownEmail = internalmetrics.MetricMagicLinkUnknownEmail
	MetricMagicLinkConsumed     = internalmetrics.MetricMagicLinkConsumed
	MetricMagicLinkInvalid      = internalmetrics.MetricMagicLinkInvalid
	MetricProfileUpdated        = internalmetrics.MetricProfileUpdated
	MetricPasswordRehash        = internalmetrics.MetricPasswordRehash
	MetricReapedKeys            = internalmetrics.MetricReapedKeys
	MetricStoreRetry            = internalmetrics.MetricStoreRetry
	MetricStoreOutOfMemory      = internalmetrics.MetricStoreOutOfMemory
	MetricVerifyLatency         = internalmetrics.MetricVerifyLatency
)

// Metrics holds atomic counters and the optional verification histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance. When Enabled is false every
// operation is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
