package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for record lifecycle operations.
type Metrics struct {
	Operations       *prometheus.CounterVec
	OperationLatency *prometheus.HistogramVec
	InvalidDrafts    prometheus.Counter
	Conflicts        prometheus.Counter
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rdm_record_operations_total",
			Help: "Record lifecycle operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rdm_record_operation_duration_seconds",
			Help:    "Duration of record lifecycle operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		InvalidDrafts: factory.NewCounter(prometheus.CounterOpts{
			Name: "rdm_record_invalid_drafts_total",
			Help: "Drafts saved with validation errors",
		}),
		Conflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "rdm_record_revision_conflicts_total",
			Help: "Operations aborted because an aggregate changed concurrently",
		}),
	}
}

func (m *Metrics) ObserveOperation(operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) IncInvalidDraft() {
	if m == nil {
		return
	}
	m.InvalidDrafts.Inc()
}

func (m *Metrics) IncConflict() {
	if m == nil {
		return
	}
	m.Conflicts.Inc()
}
