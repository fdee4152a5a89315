package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	updatesApplied atomic.Uint64
	decodeFailures atomic.Uint64
	reconnects     atomic.Uint64

	// Gauges
	activeSubscriptions atomic.Int32
	wsConnected         atomic.Int32 // 1 = connected, 0 = down
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordUpdate records one decoded account update applied to a cell.
func (m *Metrics) RecordUpdate() {
	m.updatesApplied.Add(1)
}

// RecordDecodeFailure records a live update that failed to decode.
func (m *Metrics) RecordDecodeFailure() {
	m.decodeFailures.Add(1)
}

// RecordReconnect records a websocket reconnect.
func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

// IncrementSubscriptions increments active subscriptions by 1.
func (m *Metrics) IncrementSubscriptions() {
	m.activeSubscriptions.Add(1)
}

// DecrementSubscriptions decrements active subscriptions by 1.
func (m *Metrics) DecrementSubscriptions() {
	m.activeSubscriptions.Add(-1)
}

// SetWSConnected sets the websocket connection gauge.
func (m *Metrics) SetWSConnected(connected bool) {
	if connected {
		m.wsConnected.Store(1)
	} else {
		m.wsConnected.Store(0)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	UpdatesApplied      uint64
	DecodeFailures      uint64
	Reconnects          uint64
	ActiveSubscriptions int32
	WSConnected         bool
	Timestamp           time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		UpdatesApplied:      m.updatesApplied.Load(),
		DecodeFailures:      m.decodeFailures.Load(),
		Reconnects:          m.reconnects.Load(),
		ActiveSubscriptions: m.activeSubscriptions.Load(),
		WSConnected:         m.wsConnected.Load() == 1,
		Timestamp:           time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.updatesApplied.Store(0)
	m.decodeFailures.Store(0)
	m.reconnects.Store(0)
	m.activeSubscriptions.Store(0)
	m.wsConnected.Store(0)
}
