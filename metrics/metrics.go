// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codereview_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "codereview_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	NotificationsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codereview_notifications_created_total",
		Help: "Notifications persisted by type.",
	}, []string{"type"})

	EmailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codereview_emails_total",
		Help: "Emails attempted by template and result.",
	}, []string{"template", "result"})

	OutboxEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codereview_outbox_events_total",
		Help: "Outbox events handled by type and result.",
	}, []string{"type", "result"})

	RateLimitRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codereview_rate_limit_rejected_total",
		Help: "Requests rejected by the rate limiter.",
	}, []string{"scope"})

	WebsocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "codereview_websocket_connections",
		Help: "Open notification websocket connections.",
	})
)
