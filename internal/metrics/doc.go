// Package metrics aggregates cache and cursor activity for reporting.
//
// A [Collector] is handed to the cache as its observer and to the runner for
// ticks:
//
//	collector := metrics.NewCollector()
//	c := cache.New(loader, cache.WithObserver(collector))
//	...
//	collector.RecordTick(out.TotalRows > 0, out.Complete)
//	stats := collector.Stats(collector.Elapsed())
//
// Load latencies go into an HDR histogram, so percentiles stay accurate
// across long runs. Failed loads are counted per error kind; use
// [FlattenErrors] for a sorted, labelled breakdown.
package metrics
