// Package metrics provides Prometheus-backed and no-op observability
// collectors for the lock daemon and the update-check engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DaemonMetrics defines observability hooks for the lock daemon. All
// methods must be safe for concurrent use.
type DaemonMetrics interface {
	// IncrContextOpened increments the count of CONTEXT requests served.
	IncrContextOpened()

	// IncrContextClosed increments the count of contexts closed, tagged by
	// reason: "client" (explicit CLOSE), "idle" (idle timeout) or
	// "disconnect" (owning connection dropped).
	IncrContextClosed(reason string)

	// IncrLockAcquired increments the count of keys successfully acquired.
	IncrLockAcquired(shared bool)

	// IncrLockTimedOut increments the count of ACQUIRE calls that never
	// completed because their context was canceled while waiting.
	IncrLockTimedOut()

	// ObserveAcquireWait records how long an ACQUIRE call spent waiting for
	// a contended key before being granted or canceled.
	ObserveAcquireWait(d time.Duration)

	// SetActiveConnections sets the number of live client connections.
	SetActiveConnections(count int)

	// SetOpenContexts sets the number of currently open lock contexts.
	SetOpenContexts(count int)

	// SetHeldLocks sets the number of distinct keys currently held.
	SetHeldLocks(count int)

	// Reset clears the closed-context and acquired-lock counters and zeroes
	// the three gauges. The opened-context and timed-out counters and the
	// acquire-wait histogram are left as they are.
	Reset()
}

type promDaemonMetrics struct {
	contextsOpened   prometheus.Counter
	contextsClosed   *prometheus.CounterVec
	locksAcquired    *prometheus.CounterVec
	locksTimedOut    prometheus.Counter
	acquireWait      prometheus.Histogram
	activeConns      prometheus.Gauge
	openContexts     prometheus.Gauge
	heldLocks        prometheus.Gauge
}

// NewPrometheusDaemonMetrics registers and returns a Prometheus-backed
// DaemonMetrics on reg.
func NewPrometheusDaemonMetrics(reg prometheus.Registerer) DaemonMetrics {
	m := &promDaemonMetrics{
		contextsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lockd_contexts_opened_total",
			Help: "Total number of CONTEXT requests served.",
		}),
		contextsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lockd_contexts_closed_total",
			Help: "Total number of contexts closed, by reason.",
		}, []string{"reason"}),
		locksAcquired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lockd_locks_acquired_total",
			Help: "Total number of keys acquired, by mode.",
		}, []string{"mode"}),
		locksTimedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lockd_locks_timed_out_total",
			Help: "Total number of ACQUIRE calls canceled while waiting.",
		}),
		acquireWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lockd_acquire_wait_seconds",
			Help:    "Time an ACQUIRE call spent waiting for a contended key.",
			Buckets: prometheus.DefBuckets,
		}),
		activeConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lockd_active_connections",
			Help: "Number of live client connections.",
		}),
		openContexts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lockd_open_contexts",
			Help: "Number of currently open lock contexts.",
		}),
		heldLocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lockd_held_locks",
			Help: "Number of distinct keys currently held.",
		}),
	}
	reg.MustRegister(
		m.contextsOpened, m.contextsClosed, m.locksAcquired, m.locksTimedOut,
		m.acquireWait, m.activeConns, m.openContexts, m.heldLocks,
	)
	return m
}

func (m *promDaemonMetrics) IncrContextOpened() { m.contextsOpened.Inc() }

func (m *promDaemonMetrics) IncrContextClosed(reason string) {
	m.contextsClosed.WithLabelValues(reason).Inc()
}

func (m *promDaemonMetrics) IncrLockAcquired(shared bool) {
	mode := "exclusive"
	if shared {
		mode = "shared"
	}
	m.locksAcquired.WithLabelValues(mode).Inc()
}

func (m *promDaemonMetrics) IncrLockTimedOut() { m.locksTimedOut.Inc() }

func (m *promDaemonMetrics) ObserveAcquireWait(d time.Duration) {
	m.acquireWait.Observe(d.Seconds())
}

func (m *promDaemonMetrics) SetActiveConnections(count int) { m.activeConns.Set(float64(count)) }
func (m *promDaemonMetrics) SetOpenContexts(count int)      { m.openContexts.Set(float64(count)) }
func (m *promDaemonMetrics) SetHeldLocks(count int)         { m.heldLocks.Set(float64(count)) }

func (m *promDaemonMetrics) Reset() {
	m.contextsClosed.Reset()
	m.locksAcquired.Reset()
	m.activeConns.Set(0)
	m.openContexts.Set(0)
	m.heldLocks.Set(0)
}

// noOpDaemonMetrics discards every observation.
type noOpDaemonMetrics struct{}

// NewNoOpDaemonMetrics returns a DaemonMetrics that does nothing, for tests
// and callers that don't want a Prometheus dependency.
func NewNoOpDaemonMetrics() DaemonMetrics { return &noOpDaemonMetrics{} }

func (*noOpDaemonMetrics) IncrContextOpened()               {}
func (*noOpDaemonMetrics) IncrContextClosed(reason string)  {}
func (*noOpDaemonMetrics) IncrLockAcquired(shared bool)      {}
func (*noOpDaemonMetrics) IncrLockTimedOut()                {}
func (*noOpDaemonMetrics) ObserveAcquireWait(d time.Duration) {}
func (*noOpDaemonMetrics) SetActiveConnections(count int)   {}
func (*noOpDaemonMetrics) SetOpenContexts(count int)        {}
func (*noOpDaemonMetrics) SetHeldLocks(count int)           {}
func (*noOpDaemonMetrics) Reset()                           {}
