package authgate

import "sync/atomic"

// MetricID identifies one Engine counter.
type MetricID uint16

const (
	// MetricResetRequested counts successfully issued reset tokens.
	MetricResetRequested MetricID = iota
	// MetricResetRateLimited counts denied reset requests.
	MetricResetRateLimited
	// MetricResetCompleted counts successful redemptions.
	MetricResetCompleted
	// MetricResetRejected counts redemptions rejected by password policy.
	MetricResetRejected
	metricIDCount
)

// Metrics is a fixed set of atomic counters. Inc and Snapshot are safe for
// concurrent use.
type Metrics struct {
	counters [metricIDCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func newMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricIDCount)}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
