// Package observability exposes engine counters and gauges to Prometheus.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors on a private registry so
// tests can create independent instances.
type Metrics struct {
	registry *prometheus.Registry

	TriggersTotal   *prometheus.CounterVec
	SuppressedTotal *prometheus.CounterVec
	DeliveredTotal  *prometheus.CounterVec
	FailedTotal     *prometheus.CounterVec
	EscalationsTotal prometheus.Counter
	ExpiredTotal     prometheus.Counter

	QueueDepth     *prometheus.GaugeVec
	ActiveAlerts   prometheus.Gauge
	DeliveryTime   prometheus.Histogram
}

// NewMetrics creates and registers the engine collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TriggersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trendalert_triggers_total",
			Help: "Alerts generated, by alert type and priority.",
		}, []string{"type", "priority"}),
		SuppressedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trendalert_suppressed_total",
			Help: "Alerts suppressed, by reason.",
		}, []string{"reason"}),
		DeliveredTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trendalert_delivered_total",
			Help: "Alerts delivered, by channel.",
		}, []string{"channel"}),
		FailedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trendalert_delivery_failures_total",
			Help: "Channel delivery failures, by channel.",
		}, []string{"channel"}),
		EscalationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "trendalert_escalations_total",
			Help: "Escalation steps executed.",
		}),
		ExpiredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "trendalert_expired_total",
			Help: "Alerts expired before successful delivery.",
		}),
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trendalert_queue_depth",
			Help: "Pending alerts per queue.",
		}, []string{"queue"}),
		ActiveAlerts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trendalert_active_alerts",
			Help: "Alerts in a non-terminal status.",
		}),
		DeliveryTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "trendalert_delivery_seconds",
			Help:    "Wall time of one delivery fan-out.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Registry returns the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordDeliveryAttempts updates delivery counters from a fan-out result.
func (m *Metrics) RecordDeliveryAttempts(channel string, success bool) {
	if success {
		m.DeliveredTotal.WithLabelValues(channel).Inc()
		return
	}
	m.FailedTotal.WithLabelValues(channel).Inc()
}
