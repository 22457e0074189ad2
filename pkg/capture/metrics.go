package capture

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics is a snapshot of loop counters.
type Metrics struct {
	Ticks           int64  `json:"ticks"`
	Skipped         int64  `json:"skipped"`
	Captures        int64  `json:"captures"`
	CaptureFailures int64  `json:"capture_failures"`
	Submissions     int64  `json:"submissions"`
	SubmitFailures  int64  `json:"submit_failures"`
	Appended        int64  `json:"appended"`
	Deduped         int64  `json:"deduped"`
	Stale           int64  `json:"stale"`
	LastError       string `json:"last_error,omitempty"`
	LastLatencyMs   int64  `json:"last_latency_ms"`
	InFlight        int64  `json:"in_flight"`
}

type metrics struct {
	ticks           atomic.Int64
	skipped         atomic.Int64
	captures        atomic.Int64
	captureFailures atomic.Int64
	submissions     atomic.Int64
	submitFailures  atomic.Int64
	appended        atomic.Int64
	deduped         atomic.Int64
	stale           atomic.Int64
	pending         atomic.Int64

	mu          sync.Mutex
	lastErr     string
	lastLatency time.Duration
}

func (m *metrics) setError(err error) {
	m.mu.Lock()
	m.lastErr = err.Error()
	m.mu.Unlock()
}

func (m *metrics) setLatency(d time.Duration) {
	m.mu.Lock()
	m.lastLatency = d
	m.mu.Unlock()
}

// Metrics returns the current counters.
func (l *Loop) Metrics() Metrics {
	l.metrics.mu.Lock()
	lastErr := l.metrics.lastErr
	latency := l.metrics.lastLatency
	l.metrics.mu.Unlock()

	return Metrics{
		Ticks:           l.metrics.ticks.Load(),
		Skipped:         l.metrics.skipped.Load(),
		Captures:        l.metrics.captures.Load(),
		CaptureFailures: l.metrics.captureFailures.Load(),
		Submissions:     l.metrics.submissions.Load(),
		SubmitFailures:  l.metrics.submitFailures.Load(),
		Appended:        l.metrics.appended.Load(),
		Deduped:         l.metrics.deduped.Load(),
		Stale:           l.metrics.stale.Load(),
		LastError:       lastErr,
		LastLatencyMs:   latency.Milliseconds(),
		InFlight:        l.metrics.pending.Load(),
	}
}
