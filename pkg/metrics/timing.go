// Package metrics provides in-process instrumentation for hg.
//
// Timing metrics cover backend fetches, layout and rendering; counters track
// how many responses were dropped as stale. Values are collected with atomic
// operations and can be dumped with `hg --metrics`.
//
// Collection is enabled by default and can be disabled with HG_METRICS=0.
//
// Usage:
//
//	func fetch() {
//	    defer metrics.Timer(metrics.QueryFetch)()
//	    // ...
//	}
package metrics

import (
	"os"
	"sync/atomic"
	"time"
)

// enabled controls whether metrics are collected.
// Defaults to true unless HG_METRICS=0 is set.
var enabled = os.Getenv("HG_METRICS") != "0"

// Enabled returns whether metrics collection is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of metrics collection.
func SetEnabled(e bool) {
	enabled = e
}

// TimingMetric tracks timing statistics for a named operation.
// All methods are thread-safe using atomic operations.
type TimingMetric struct {
	name    string
	count   int64
	totalNs int64
	maxNs   int64
	minNs   int64 // 0 means not set
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record records a single timing measurement.
func (m *TimingMetric) Record(d time.Duration) {
	if !enabled {
		return
	}
	ns := d.Nanoseconds()

	atomic.AddInt64(&m.count, 1)
	atomic.AddInt64(&m.totalNs, ns)

	for {
		old := atomic.LoadInt64(&m.maxNs)
		if ns <= old || atomic.CompareAndSwapInt64(&m.maxNs, old, ns) {
			break
		}
	}

	for {
		old := atomic.LoadInt64(&m.minNs)
		if old != 0 && ns >= old {
			break
		}
		if atomic.CompareAndSwapInt64(&m.minNs, old, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string {
	return m.name
}

// Count returns the number of recorded measurements.
func (m *TimingMetric) Count() int64 {
	return atomic.LoadInt64(&m.count)
}

// Stats returns all timing statistics at once.
func (m *TimingMetric) Stats() TimingStats {
	count := atomic.LoadInt64(&m.count)
	totalNs := atomic.LoadInt64(&m.totalNs)
	maxNs := atomic.LoadInt64(&m.maxNs)
	minNs := atomic.LoadInt64(&m.minNs)

	var avgNs int64
	if count > 0 {
		avgNs = totalNs / count
	}

	return TimingStats{
		Name:    m.name,
		Count:   count,
		TotalMs: float64(totalNs) / 1e6,
		AvgMs:   float64(avgNs) / 1e6,
		MaxMs:   float64(maxNs) / 1e6,
		MinMs:   float64(minNs) / 1e6,
	}
}

// Reset clears all recorded measurements.
func (m *TimingMetric) Reset() {
	atomic.StoreInt64(&m.count, 0)
	atomic.StoreInt64(&m.totalNs, 0)
	atomic.StoreInt64(&m.maxNs, 0)
	atomic.StoreInt64(&m.minNs, 0)
}

// TimingStats holds a snapshot of timing statistics.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer returns a function that records elapsed time when called.
//
//	defer metrics.Timer(metrics.LayoutCompute)()
func Timer(m *TimingMetric) func() {
	if !enabled || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.Record(time.Since(start))
	}
}

// Counter is a monotonically increasing event count.
type Counter struct {
	name string
	n    int64
}

// Inc adds one to the counter.
func (c *Counter) Inc() {
	if !enabled {
		return
	}
	atomic.AddInt64(&c.n, 1)
}

// Value returns the current count.
func (c *Counter) Value() int64 { return atomic.LoadInt64(&c.n) }

// Name returns the counter name.
func (c *Counter) Name() string { return c.name }

// Reset sets the counter back to zero.
func (c *Counter) Reset() { atomic.StoreInt64(&c.n, 0) }

// Global metrics.
var (
	QueryFetch     = newTimingMetric("query_fetch")
	DetailsFetch   = newTimingMetric("details_fetch")
	InfoFetch      = newTimingMetric("info_fetch")
	ScriptFetch    = newTimingMetric("script_fetch")
	GenerateFetch  = newTimingMetric("generate_fetch")
	SuggestFetch   = newTimingMetric("suggest_fetch")
	TaxonomyFetch  = newTimingMetric("taxonomy_fetch")
	LayoutCompute  = newTimingMetric("layout_compute")
	UIRender       = newTimingMetric("ui_render")
	SnapshotExport = newTimingMetric("snapshot_export")

	StaleResponses = &Counter{name: "stale_responses"}
	FailedFetches  = &Counter{name: "failed_fetches"}
)

// AllTimingMetrics returns all registered timing metrics.
func AllTimingMetrics() []*TimingMetric {
	return []*TimingMetric{
		QueryFetch,
		DetailsFetch,
		InfoFetch,
		ScriptFetch,
		GenerateFetch,
		SuggestFetch,
		TaxonomyFetch,
		LayoutCompute,
		UIRender,
		SnapshotExport,
	}
}

// AllCounters returns all registered counters.
func AllCounters() []*Counter {
	return []*Counter{StaleResponses, FailedFetches}
}

// ResetAll resets every metric.
func ResetAll() {
	for _, m := range AllTimingMetrics() {
		m.Reset()
	}
	for _, c := range AllCounters() {
		c.Reset()
	}
}

// AllTimingStats returns stats for all timing metrics with data.
func AllTimingStats() []TimingStats {
	metrics := AllTimingMetrics()
	stats := make([]TimingStats, 0, len(metrics))
	for _, m := range metrics {
		if m.Count() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	return stats
}

// CounterValues returns a name -> value map of all counters.
func CounterValues() map[string]int64 {
	out := make(map[string]int64)
	for _, c := range AllCounters() {
		out[c.Name()] = c.Value()
	}
	return out
}
