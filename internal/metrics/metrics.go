// Package metrics holds the gateway's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	registry *prometheus.Registry

	VerificationsTotal   *prometheus.CounterVec
	VerificationDuration *prometheus.HistogramVec
	ReplaysTotal         *prometheus.CounterVec
	DeliveriesEnqueued   *prometheus.CounterVec
}

// New creates the collectors and registers them, plus the Go and process
// collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		VerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hookgate_verifications_total",
				Help: "Webhook signature verifications by source and result",
			},
			[]string{"source", "result"},
		),
		VerificationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hookgate_verification_duration_seconds",
				Help:    "Time spent verifying webhook signatures",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
			},
			[]string{"source"},
		),
		ReplaysTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hookgate_replays_total",
				Help: "Validly signed requests rejected as replays",
			},
			[]string{"source"},
		),
		DeliveriesEnqueued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hookgate_deliveries_enqueued_total",
				Help: "Verified deliveries handed to the queue",
			},
			[]string{"source"},
		),
	}

	reg.MustRegister(
		m.VerificationsTotal,
		m.VerificationDuration,
		m.ReplaysTotal,
		m.DeliveriesEnqueued,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveVerification records one verification outcome. result is "valid",
// a reason slug, or "error".
func (m *Metrics) ObserveVerification(source, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.VerificationsTotal.WithLabelValues(source, result).Inc()
	m.VerificationDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveReplay counts a replayed request.
func (m *Metrics) ObserveReplay(source string) {
	if m == nil {
		return
	}
	m.ReplaysTotal.WithLabelValues(source).Inc()
}

// ObserveEnqueued counts a delivery accepted into the queue.
func (m *Metrics) ObserveEnqueued(source string) {
	if m == nil {
		return
	}
	m.DeliveriesEnqueued.WithLabelValues(source).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
