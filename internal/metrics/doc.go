// Package metrics aggregates per-row latency and failures for batch runs.
//
// A [Collector] is safe for concurrent use and keeps query latencies in an HDR
// histogram, so percentiles stay accurate without keeping every sample:
//
//	collector := metrics.NewCollector()
//	collector.RecordRow(latency, err)
//	stats := collector.Stats(elapsed)
//
// Failures are grouped by [ErrorCategory], which maps the error chain of a
// failed row to a short human-readable label.
package metrics
