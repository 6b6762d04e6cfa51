package pipeline

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the Prometheus counters the executor emits, following the
// nil-safe, registry-injected pattern used throughout the pack: every
// method is a no-op on a nil *metrics, so an executor built without a
// registerer pays no instrumentation cost.
type metrics struct {
	executed *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	failed   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// newMetrics builds and registers the executor's counters against reg. A
// nil reg disables metrics entirely.
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}

	m := &metrics{
		executed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reqrep",
			Subsystem: "transform",
			Name:      "executed_total",
			Help:      "Total number of transforms applied successfully.",
		}, []string{"side", "name"}),

		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reqrep",
			Subsystem: "transform",
			Name:      "skipped_total",
			Help:      "Total number of transforms whose ShouldApply returned false.",
		}, []string{"side", "name"}),

		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reqrep",
			Subsystem: "transform",
			Name:      "failed_total",
			Help:      "Total number of transforms that errored or timed out.",
		}, []string{"side", "name", "reason"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reqrep",
			Subsystem: "transform",
			Name:      "duration_seconds",
			Help:      "Per-transform Apply duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"side", "name"}),
	}

	reg.MustRegister(m.executed, m.skipped, m.failed, m.duration)
	return m
}

func (m *metrics) recordExecuted(side, name string, seconds float64) {
	if m == nil {
		return
	}
	m.executed.WithLabelValues(side, name).Inc()
	m.duration.WithLabelValues(side, name).Observe(seconds)
}

func (m *metrics) recordSkipped(side, name string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(side, name).Inc()
}

func (m *metrics) recordFailed(side, name, reason string) {
	if m == nil {
		return
	}
	m.failed.WithLabelValues(side, name, reason).Inc()
}
