// Package otel binds authcache engine metrics to OpenTelemetry.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine
// counter. The verify latency histogram becomes a bucket gauge carrying an
// "le" attribute plus a count gauge. A single callback reads
// [authcache.Engine.MetricsSnapshot] on each collection cycle.
//
// Callers own the MeterProvider and supply the Meter.
package otel
