// Package metrics provides lock-free counters and a verification latency
// histogram for the engine.
//
// Counters live in cache-line padded uint64 slots and are bumped with
// [sync/atomic.AddUint64]. The histogram uses 8 fixed buckets (<=5ms up to
// +Inf). Neither allocates on the write path.
//
// Export to Prometheus and OpenTelemetry lives in metrics/export and reads
// [Snapshot] values. This package performs no I/O and imports no sibling
// package.
package metrics
