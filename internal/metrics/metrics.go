// Package metrics exposes Prometheus counters for the order workflow.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil-safe: every recorder is a no-op on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	transitionsTotal   *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	staleRetries       *prometheus.CounterVec
	uploadsTotal       *prometheus.CounterVec
	outboxTotal        *prometheus.CounterVec
	outboxPending      prometheus.Gauge
}

func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}

	m.transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Workflow transitions by kind, action and result",
		},
		[]string{"kind", "action", "result"}, // result: ok or an error code
	)
	m.transitionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "order_transition_duration_seconds",
			Help:    "Time taken to apply a transition, retries included",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"kind", "action"},
	)
	m.staleRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transition_stale_retries_total",
			Help: "Serialized transitions retried after a concurrent update",
		},
		[]string{"action"},
	)
	m.uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_uploads_total",
			Help: "Files stored in the deliverable store",
		},
		[]string{"folder", "result"},
	)
	m.outboxTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_total",
			Help: "Outbox deliveries by event type and result",
		},
		[]string{"type", "result"}, // result: delivered, retry, failed
	)
	m.outboxPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_events_pending",
		Help: "Events claimed in the last dispatcher batch",
	})

	for _, c := range []prometheus.Collector{
		m.transitionsTotal, m.transitionDuration, m.staleRetries,
		m.uploadsTotal, m.outboxTotal, m.outboxPending,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler serves the registry for /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Transition(kind, action, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(kind, action, result).Inc()
	m.transitionDuration.WithLabelValues(kind, action).Observe(elapsed.Seconds())
}

func (m *Metrics) StaleRetry(action string) {
	if m == nil {
		return
	}
	m.staleRetries.WithLabelValues(action).Inc()
}

func (m *Metrics) Upload(folder string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.uploadsTotal.WithLabelValues(folder, result).Inc()
}

func (m *Metrics) Outbox(eventType, result string) {
	if m == nil {
		return
	}
	m.outboxTotal.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) OutboxBatch(n int) {
	if m == nil {
		return
	}
	m.outboxPending.Set(float64(n))
}
