package goAuthClient

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one client counter.
//
// MetricID values are stable for the lifetime of a build and index into
// fixed-size arrays; exporters map them to names.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that ended authenticated.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts logins rejected by the server or transport.
	MetricLoginFailure
	// MetricLoginNotAuthorized counts logins whose roles were outside the allow-list.
	MetricLoginNotAuthorized
	// MetricRefreshSuccess counts refresh calls that stored a new token pair.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refresh calls that ended the session.
	MetricRefreshFailure
	// MetricRefreshDiscarded counts refresh results dropped after a logout or re-login.
	MetricRefreshDiscarded
	// MetricRefreshWaiter counts requests that joined an in-flight refresh cycle.
	MetricRefreshWaiter
	// MetricRequestReplayed counts requests replayed after a refresh.
	MetricRequestReplayed
	// MetricNetworkError counts transport failures.
	MetricNetworkError
	// MetricLogout counts logouts, explicit or forced.
	MetricLogout
	// MetricGuardAllowed counts allowed guard decisions.
	MetricGuardAllowed
	// MetricGuardDenied counts denied guard decisions, including sign-in redirects.
	MetricGuardDenied
	// MetricGuardCacheHit counts decisions served from the decision cache.
	MetricGuardCacheHit
	// MetricSessionLost counts sessions ended because the store no longer
	// held the full record.
	MetricSessionLost
	// MetricRefreshLatency is the refresh round-trip latency histogram.
	MetricRefreshLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and the refresh latency histogram.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics honoring cfg. A disabled Metrics drops
// every write and snapshots as empty.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only MetricRefreshLatency
// carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricRefreshLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency buckets.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricRefreshLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRefreshLatency].buckets[i])
		}
		s.Histograms[MetricRefreshLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
