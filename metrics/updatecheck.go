package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UpdateCheckMetrics defines observability hooks for the update-check
// policy engine. All methods must be safe for concurrent use.
type UpdateCheckMetrics interface {
	// IncrCheckRequested increments every call to Manager.Check.
	IncrCheckRequested()

	// IncrCheckRequired increments checks whose evaluation against the
	// sidecar and policy returned RequiredCheck. Results forced by session
	// bypass or replayed from the session dedup cache are not counted here.
	IncrCheckRequired()

	// IncrCheckSkipped increments checks that were skipped, tagged by
	// reason (e.g. "session-dedup", "policy-window", "error-replay",
	// "not-found-replay").
	IncrCheckSkipped(reason string)

	// ObserveCheckDuration records wall-clock time spent evaluating one
	// Check call, including sidecar I/O.
	ObserveCheckDuration(d time.Duration)

	// Reset clears the skipped-by-reason counters. The requested and
	// required counters and the duration histogram are left as they are.
	Reset()
}

type promUpdateCheckMetrics struct {
	requested   prometheus.Counter
	required    prometheus.Counter
	skipped     *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewPrometheusUpdateCheckMetrics registers and returns a Prometheus-backed
// UpdateCheckMetrics on reg.
func NewPrometheusUpdateCheckMetrics(reg prometheus.Registerer) UpdateCheckMetrics {
	m := &promUpdateCheckMetrics{
		requested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "updatecheck_requested_total",
			Help: "Total number of update-check evaluations requested.",
		}),
		required: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "updatecheck_required_total",
			Help: "Total number of update-check evaluations that required a remote check.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "updatecheck_skipped_total",
			Help: "Total number of update-check evaluations skipped, by reason.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "updatecheck_duration_seconds",
			Help:    "Time spent evaluating one Check call.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.requested, m.required, m.skipped, m.duration)
	return m
}

func (m *promUpdateCheckMetrics) IncrCheckRequested()             { m.requested.Inc() }
func (m *promUpdateCheckMetrics) IncrCheckRequired()               { m.required.Inc() }
func (m *promUpdateCheckMetrics) IncrCheckSkipped(reason string)   { m.skipped.WithLabelValues(reason).Inc() }
func (m *promUpdateCheckMetrics) ObserveCheckDuration(d time.Duration) {
	m.duration.Observe(d.Seconds())
}
func (m *promUpdateCheckMetrics) Reset() { m.skipped.Reset() }

type noOpUpdateCheckMetrics struct{}

// NewNoOpUpdateCheckMetrics returns an UpdateCheckMetrics that discards
// everything.
func NewNoOpUpdateCheckMetrics() UpdateCheckMetrics { return &noOpUpdateCheckMetrics{} }

func (*noOpUpdateCheckMetrics) IncrCheckRequested()                   {}
func (*noOpUpdateCheckMetrics) IncrCheckRequired()                    {}
func (*noOpUpdateCheckMetrics) IncrCheckSkipped(reason string)        {}
func (*noOpUpdateCheckMetrics) ObserveCheckDuration(d time.Duration)  {}
func (*noOpUpdateCheckMetrics) Reset()                                {}
