package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics tracks the publish pipeline that drains outbox events to Pub/Sub.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	pending   prometheus.Gauge
}

// NewOutboxMetrics registers the outbox metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "classpulse_outbox_published_total",
		Help: "Outbox events successfully published, by event type.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "classpulse_outbox_publish_failures_total",
		Help: "Outbox publish attempts that failed, by event type.",
	}, []string{"event_type"})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "classpulse_outbox_pending",
		Help: "Unpublished outbox events observed on the last poll.",
	})
	reg.MustRegister(published, failed, pending)
	return &OutboxMetrics{
		published: published,
		failed:    failed,
		pending:   pending,
	}
}

// IncPublished increments the published counter for an event type.
func (m *OutboxMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(eventType).Inc()
}

// IncFailed increments the failure counter for an event type.
func (m *OutboxMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(eventType).Inc()
}

// SetPending records the current unpublished backlog size.
func (m *OutboxMetrics) SetPending(n int) {
	if m == nil || m.pending == nil {
		return
	}
	m.pending.Set(float64(n))
}
