package authcache

import (
	"testing"
	"time"
)

// hotPathMetrics are the counters touched on every issuance and refresh.
var hotPathMetrics = [...]MetricID{
	MetricSessionCreated,
	MetricSessionReissued,
	MetricRefreshSuccess,
	MetricRefreshFailure,
	MetricRateLimitHit,
	MetricLogout,
	MetricStoreRetry,
}

func BenchmarkMetrics(b *testing.B) {
	cases := []struct {
		name    string
		cfg     MetricsConfig
		observe bool
	}{
		{name: "inc", cfg: MetricsConfig{Enabled: true}},
		{name: "inc_disabled", cfg: MetricsConfig{}},
		{name: "observe_verify", cfg: MetricsConfig{Enabled: true, EnableLatencyHistograms: true}, observe: true},
	}
	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			m := NewMetrics(tc.cfg)
			b.ReportAllocs()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					if tc.observe {
						m.Observe(MetricVerifyLatency, 3*time.Millisecond)
						continue
					}
					m.Inc(MetricRefreshSuccess)
				}
			})
		})
	}
}

func BenchmarkMetricsHotPathSpread(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for i := 0; pb.Next(); i++ {
			m.Inc(hotPathMetrics[i%len(hotPathMetrics)])
		}
	})
}
