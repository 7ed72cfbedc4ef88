// Package metrics holds the Prometheus collectors exposed at /metrics.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tiertrainer"

var (
	AnalyticsEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analytics_events_total",
		Help:      "Analytics events accepted, by event name.",
	}, []string{"event"})

	DeviceDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "device_binding_decisions_total",
		Help:      "Device binding checks, by outcome.",
	}, []string{"outcome"})

	TrialsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trials_started_total",
		Help:      "Trials started by users.",
	})

	TrialsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trials_expired_total",
		Help:      "Trial subscribers flipped to inactive by the expiry job.",
	})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stripe_webhook_events_total",
		Help:      "Stripe webhook events, by type and result.",
	}, []string{"type", "result"})

	CheckoutSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_sessions_total",
		Help:      "Stripe checkout sessions created, by price type.",
	}, []string{"price_type"})

	HealthCheckDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "health_check_duration_seconds",
		Help:      "Latency of admin health probes.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service", "status"})
)

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
