package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// LifecycleMetrics records document transitions (order submit/cancel,
// onboarding submit/cancel) and guest-facing operations.
type LifecycleMetrics struct {
	transitions *prometheus.CounterVec
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewLifecycleMetrics registers the lifecycle metrics on the provided registerer.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "krc",
		Name:      "document_transitions_total",
		Help:      "Lifecycle transitions by document, transition and outcome.",
	}, []string{"document", "transition", "outcome"})
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "krc",
		Name:      "operations_total",
		Help:      "Guest-facing operations by name and outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "krc",
		Name:      "operation_duration_seconds",
		Help:      "Duration of guest-facing operations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(transitions, operations, duration)
	return &LifecycleMetrics{
		transitions: transitions,
		operations:  operations,
		duration:    duration,
	}
}

// IncTransition counts a document transition attempt.
func (m *LifecycleMetrics) IncTransition(document, transition string, err error) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(document), normalizeLabel(transition), outcome(err)).Inc()
}

// ObserveOperation records the duration and outcome of an operation.
func (m *LifecycleMetrics) ObserveOperation(operation string, started time.Time, err error) {
	if m == nil || m.operations == nil || m.duration == nil {
		return
	}
	op := normalizeLabel(operation)
	m.duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	m.operations.WithLabelValues(op, outcome(err)).Inc()
}

// OutboxMetrics records relay progress per event type.
type OutboxMetrics struct {
	published    *prometheus.CounterVec
	failed       *prometheus.CounterVec
	deadLettered *prometheus.CounterVec
	notified     *prometheus.CounterVec
}

// NewOutboxMetrics registers the outbox relay metrics.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	newCounter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "krc",
			Subsystem: "outbox",
			Name:      name,
			Help:      help,
		}, []string{"event_type"})
	}
	m := &OutboxMetrics{
		published:    newCounter("published_total", "Outbox rows published."),
		failed:       newCounter("failed_total", "Outbox publish attempts that failed and will retry."),
		deadLettered: newCounter("dead_lettered_total", "Outbox rows moved to the DLQ."),
		notified:     newCounter("notifications_sent_total", "Notification emails sent from outbox rows."),
	}
	reg.MustRegister(m.published, m.failed, m.deadLettered, m.notified)
	return m
}

func (m *OutboxMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncDeadLettered(eventType string) {
	if m == nil || m.deadLettered == nil {
		return
	}
	m.deadLettered.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncNotified(eventType string) {
	if m == nil || m.notified == nil {
		return
	}
	m.notified.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// HTTPMetrics records request latency by route pattern.
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP request histogram.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "krc",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	reg.MustRegister(duration)
	return &HTTPMetrics{duration: duration}
}

// Observe records one request.
func (m *HTTPMetrics) Observe(method, route, status string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(method, normalizeLabel(route), status).Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
