package goShelf

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that produced a session.
	MetricLoginSuccess MetricID = iota
	// MetricLoginInvalidCredentials counts logins rejected with 400/401.
	MetricLoginInvalidCredentials
	// MetricLoginFailure counts other login failures (transport, malformed, store).
	MetricLoginFailure
	// MetricLogout counts explicit logouts.
	MetricLogout
	// MetricSessionExpired counts sessions purged after a 401.
	MetricSessionExpired
	// MetricSessionRestored counts Managers hydrated with an active token.
	MetricSessionRestored
	// MetricSessionCorrupt counts persisted sessions discarded as unreadable.
	MetricSessionCorrupt
	// MetricProfileUpdated counts UpdateUser calls that persisted.
	MetricProfileUpdated
	// MetricRegisterSuccess counts accepted registrations.
	MetricRegisterSuccess
	// MetricRegisterFailure counts rejected or failed registrations.
	MetricRegisterFailure
	// MetricStoreFailure counts session store writes or clears that failed.
	MetricStoreFailure
	// MetricNavigationFailure counts navigation commands the Navigator rejected.
	MetricNavigationFailure
	// MetricRequestTotal counts API requests that produced a response.
	MetricRequestTotal
	// MetricRequestUnauthorized counts API responses with status 401.
	MetricRequestUnauthorized
	// MetricRequestServerError counts API responses with a 5xx status.
	MetricRequestServerError
	// MetricRequestLatency is the API request latency histogram.
	MetricRequestLatency
	metricIDCount
)

// latencyBounds are the inclusive upper bounds of the finite latency buckets.
// A final bucket catches everything slower.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const latencyBucketCount = len(latencyBounds) + 1

// counter sits alone on a cache line so hot request counters do not contend
// with session counters.
type counter struct {
	atomic.Uint64
	_ [56]byte
}

// Metrics is a fixed set of lock-free counters plus the API latency histogram.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled bool
	latency bool

	counters [metricIDCount]counter
	buckets  [latencyBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of [Metrics]. Histogram buckets are
// non-cumulative, bounded at 5, 10, 25, 50, 100, 250, 500 ms and +Inf.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters record.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram records.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.latency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount || id == MetricRequestLatency {
		return
	}
	m.counters[id].Add(1)
}

// Observe records d in the histogram id. Only MetricRequestLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricRequestLatency {
		return
	}
	m.buckets[latencyBucket(d)].Add(1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies every counter, and the latency histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return snap
	}
	for id := range metricIDCount {
		if id != MetricRequestLatency {
			snap.Counters[id] = m.counters[id].Load()
		}
	}
	if m.latency {
		buckets := make([]uint64, latencyBucketCount)
		for i := range buckets {
			buckets[i] = m.buckets[i].Load()
		}
		snap.Histograms[MetricRequestLatency] = buckets
	}
	return snap
}

func latencyBucket(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(latencyBounds)
}
