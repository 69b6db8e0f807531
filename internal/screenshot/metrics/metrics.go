// Package metrics exposes pipeline counters for Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "askollama"

// Result labels.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	eventsReceived *prometheus.CounterVec
	tasksScheduled prometheus.Counter
	tasksInFlight  prometheus.Gauge
	extractions    *prometheus.CounterVec
	explanations   *prometheus.CounterVec
	publications   *prometheus.CounterVec
	taskDuration   prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_total",
			Help:      "Filesystem events received from the watcher, by kind.",
		}, []string{"kind"}),
		tasksScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_scheduled_total",
			Help:      "Pipeline tasks scheduled for create events.",
		}),
		tasksInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_in_flight",
			Help:      "Pipeline tasks currently running.",
		}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "OCR extractions, by result.",
		}, []string{"result"}),
		explanations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "explanations_total",
			Help:      "Explanation requests, by result.",
		}, []string{"result"}),
		publications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publications_total",
			Help:      "Results published to subscribers, by topic.",
		}, []string{"topic"}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Time from event receipt to task completion.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.eventsReceived,
			m.tasksScheduled,
			m.tasksInFlight,
			m.extractions,
			m.explanations,
			m.publications,
			m.taskDuration,
		)
	}
	return m
}

// EventReceived counts one watcher event of the given kind.
func (m *Metrics) EventReceived(kind string) {
	if m == nil {
		return
	}
	m.eventsReceived.WithLabelValues(kind).Inc()
}

// TaskStarted counts a scheduled task and marks it in flight.
func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.tasksScheduled.Inc()
	m.tasksInFlight.Inc()
}

// TaskFinished records the task duration and clears its in-flight mark.
func (m *Metrics) TaskFinished(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.tasksInFlight.Dec()
	m.taskDuration.Observe(elapsed.Seconds())
}

// Extraction counts one OCR attempt.
func (m *Metrics) Extraction(result string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(result).Inc()
}

// Explanation counts one explanation attempt.
func (m *Metrics) Explanation(result string) {
	if m == nil {
		return
	}
	m.explanations.WithLabelValues(result).Inc()
}

// Published counts one publication on topic.
func (m *Metrics) Published(topic string) {
	if m == nil {
		return
	}
	m.publications.WithLabelValues(topic).Inc()
}
