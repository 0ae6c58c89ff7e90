// Package metrics holds the Prometheus instruments for task operations and
// the HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tasks"

// Metrics holds every instrument. Register them once per registry with New.
type Metrics struct {
	TasksCreated    prometheus.Counter
	TasksDeleted    prometheus.Counter
	UpdatesApplied  prometheus.Counter
	UpdatesNoop     prometheus.Counter
	HistoryAppended prometheus.Counter
	Rejected        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates the instruments and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		TasksCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "created_total",
			Help:      "Total number of tasks created",
		}),
		TasksDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deleted_total",
			Help:      "Total number of tasks deleted",
		}),
		UpdatesApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_applied_total",
			Help:      "Total number of updates that changed at least one field",
		}),
		UpdatesNoop: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_noop_total",
			Help:      "Total number of updates that changed nothing and were not written",
		}),
		HistoryAppended: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_entries_appended_total",
			Help:      "Total number of history entries recorded, creation entries included",
		}),
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_total",
			Help:      "Operations that failed, by operation and error kind",
		}, []string{"operation", "kind"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern, method, and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

// IncrementCreated records one created task and its seed history entry.
func (m *Metrics) IncrementCreated() {
	m.TasksCreated.Inc()
	m.HistoryAppended.Inc()
}

func (m *Metrics) IncrementDeleted() {
	m.TasksDeleted.Inc()
}

// ObserveUpdate records an update that appended entries history entries.
// Zero entries counts as a no-op.
func (m *Metrics) ObserveUpdate(entries int) {
	if entries == 0 {
		m.UpdatesNoop.Inc()
		return
	}
	m.UpdatesApplied.Inc()
	m.HistoryAppended.Add(float64(entries))
}

func (m *Metrics) IncrementRejected(operation, kind string) {
	m.Rejected.WithLabelValues(operation, kind).Inc()
}

func (m *Metrics) ObserveRequest(route, method, status string, seconds float64) {
	m.RequestDuration.WithLabelValues(route, method, status).Observe(seconds)
}
