package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for PID processing.
type Metrics struct {
	ProviderOps     *prometheus.CounterVec
	RegistrarCalls  *prometheus.HistogramVec
	BreakerOpen     *prometheus.GaugeVec
	TasksScheduled  *prometheus.CounterVec
	TasksHandled    *prometheus.CounterVec
	OutboxPublished prometheus.Counter
	OutboxBacklog   prometheus.Gauge
	DuplicateTasks  prometheus.Counter
}

// New registers the PID collectors with the default registry. Call it once
// per process.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers with reg. Tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProviderOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rdm_pid_provider_operations_total",
			Help: "PID provider operations by scheme, provider, operation and outcome",
		}, []string{"scheme", "provider", "operation", "outcome"}),
		RegistrarCalls: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rdm_pid_registrar_call_duration_seconds",
			Help:    "Latency of calls to the external registration authority",
			Buckets: prometheus.DefBuckets,
		}, []string{"registrar", "operation"}),
		BreakerOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rdm_pid_registrar_circuit_open",
			Help: "1 while the registrar circuit breaker is open",
		}, []string{"registrar"}),
		TasksScheduled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rdm_pid_tasks_scheduled_total",
			Help: "Register-or-update tasks bound to a unit of work",
		}, []string{"level"}),
		TasksHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rdm_pid_tasks_handled_total",
			Help: "Register-or-update tasks executed, by action and outcome",
		}, []string{"action", "outcome"}),
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "rdm_pid_outbox_published_total",
			Help: "Outbox rows relayed to Kafka",
		}),
		OutboxBacklog: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rdm_pid_outbox_backlog",
			Help: "Unpublished outbox rows seen by the last relay poll",
		}),
		DuplicateTasks: factory.NewCounter(prometheus.CounterOpts{
			Name: "rdm_pid_tasks_duplicate_total",
			Help: "Task deliveries skipped because the task id was recently handled",
		}),
	}
}

func (m *Metrics) IncProviderOp(scheme, provider, operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ProviderOps.WithLabelValues(scheme, provider, operation, outcome).Inc()
}

func (m *Metrics) ObserveRegistrarCall(registrar, operation string, seconds float64) {
	if m == nil {
		return
	}
	m.RegistrarCalls.WithLabelValues(registrar, operation).Observe(seconds)
}

func (m *Metrics) SetBreakerOpen(registrar string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerOpen.WithLabelValues(registrar).Set(v)
}

func (m *Metrics) IncTaskScheduled(parent bool) {
	if m == nil {
		return
	}
	m.TasksScheduled.WithLabelValues(level(parent)).Inc()
}

func (m *Metrics) IncTaskHandled(action string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.TasksHandled.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) AddOutboxPublished(n int) {
	if m == nil {
		return
	}
	m.OutboxPublished.Add(float64(n))
}

func (m *Metrics) SetOutboxBacklog(n int) {
	if m == nil {
		return
	}
	m.OutboxBacklog.Set(float64(n))
}

func (m *Metrics) IncDuplicateTask() {
	if m == nil {
		return
	}
	m.DuplicateTasks.Inc()
}

func level(parent bool) string {
	if parent {
		return "parent"
	}
	return "record"
}
