package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "bundle_scheduler"

// Metrics records scheduling decisions. A nil *Metrics records nothing.
type Metrics struct {
	// decisions counts decisions by strategy and status
	decisions *prometheus.CounterVec

	// duration tracks how long a decision takes
	duration *prometheus.HistogramVec

	// acquisitions counts provisional acquisitions made while deciding
	acquisitions *prometheus.CounterVec
}

// NewMetrics creates the scheduler metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "schedule_total",
				Help:      "Total number of scheduling decisions",
			},
			[]string{"strategy", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "schedule_duration_seconds",
				Help:      "Duration of scheduling decisions",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"strategy"},
		),
		acquisitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "provisional_acquisitions_total",
				Help:      "Total number of provisional resource acquisitions, all of which are released before the decision returns",
			},
			[]string{"strategy"},
		),
	}
}

func (m *Metrics) observeDecision(strategy SchedulingType, status SchedulingResultStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(strategy.String(), status.String()).Inc()
	m.duration.WithLabelValues(strategy.String()).Observe(d.Seconds())
}

func (m *Metrics) observeAcquisition(strategy SchedulingType) {
	if m == nil {
		return
	}
	m.acquisitions.WithLabelValues(strategy.String()).Inc()
}
