// Package prometheus exports authcache engine metrics to Prometheus.
//
// [PrometheusExporter] works two ways: as a [prometheus.Collector] to
// register on a caller-owned registry (served with promhttp), or through
// its own [PrometheusExporter.Handler] that renders text exposition
// without any registry. Counter names are authcache_*_total; the single
// histogram is authcache_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
