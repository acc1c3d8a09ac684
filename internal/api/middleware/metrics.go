// Package middleware provides HTTP middleware components for the Kaiwa server.
// This file contains Prometheus metrics middleware for observability.
package middleware

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// httpRequestsTotal counts the total number of HTTP requests processed.
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaiwa_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDurationSeconds tracks the duration of HTTP requests.
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kaiwa_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// webhookEventsTotal counts webhook events by type.
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaiwa_webhook_events_total",
			Help: "Total number of webhook events received, by event type",
		},
		[]string{"type"},
	)

	// commandsTotal counts dispatched commands by name.
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaiwa_commands_total",
			Help: "Total number of commands dispatched, by command",
		},
		[]string{"command"},
	)

	// repliesTotal counts reply deliveries by outcome.
	repliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaiwa_replies_total",
			Help: "Total number of reply deliveries, by outcome",
		},
		[]string{"outcome"},
	)

	// backendRequestsTotal counts text-generation backend calls by outcome.
	backendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaiwa_backend_requests_total",
			Help: "Total number of text-generation backend calls, by outcome",
		},
		[]string{"outcome"},
	)

	// conversationEvictionsTotal counts store evictions by reason.
	conversationEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaiwa_conversation_evictions_total",
			Help: "Total number of conversation buckets evicted, by reason (ttl, capacity)",
		},
		[]string{"reason"},
	)

	// conversationsLive tracks the current number of live conversation buckets.
	conversationsLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kaiwa_conversations_live",
			Help: "Current number of live conversation buckets",
		},
	)

	// metricsRegistered ensures metrics are only registered once.
	metricsRegistered atomic.Bool
	metricsEnabled    atomic.Bool
)

// SetMetricsEnabled toggles Prometheus metrics collection.
func SetMetricsEnabled(enabled bool) {
	metricsEnabled.Store(enabled)
}

// IsMetricsEnabled reports whether metrics are enabled.
func IsMetricsEnabled() bool {
	return metricsEnabled.Load()
}

// RegisterMetrics registers all Prometheus metrics.
// It is safe to call multiple times; metrics will only be registered once.
func RegisterMetrics() {
	if !metricsRegistered.CompareAndSwap(false, true) {
		return
	}

	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		webhookEventsTotal,
		commandsTotal,
		repliesTotal,
		backendRequestsTotal,
		conversationEvictionsTotal,
		conversationsLive,
	)
}

// PrometheusMiddleware returns a Gin middleware that collects Prometheus
// metrics for HTTP requests including request count and duration.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsMetricsEnabled() {
			c.Next()
			return
		}
		RegisterMetrics()

		// Skip metrics endpoint to avoid self-referential metrics
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method
		start := time.Now()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDurationSeconds.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler returns the Prometheus HTTP handler for the /metrics endpoint.
func MetricsHandler() gin.HandlerFunc {
	handler := promhttp.Handler()
	return func(c *gin.Context) {
		if !IsMetricsEnabled() {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		RegisterMetrics()
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordWebhookEvent counts one received webhook event by type.
func RecordWebhookEvent(eventType string) {
	if !IsMetricsEnabled() {
		return
	}
	webhookEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordCommand counts one dispatched command.
func RecordCommand(command string) {
	if !IsMetricsEnabled() {
		return
	}
	commandsTotal.WithLabelValues(command).Inc()
}

// RecordReply counts one reply delivery attempt.
// outcome should be "ok" or "error".
func RecordReply(outcome string) {
	if !IsMetricsEnabled() {
		return
	}
	repliesTotal.WithLabelValues(outcome).Inc()
}

// RecordBackendRequest counts one text-generation backend call.
// outcome should be "ok" or "error".
func RecordBackendRequest(outcome string) {
	if !IsMetricsEnabled() {
		return
	}
	backendRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordConversationEviction counts one store eviction by reason.
func RecordConversationEviction(reason string) {
	if !IsMetricsEnabled() {
		return
	}
	conversationEvictionsTotal.WithLabelValues(reason).Inc()
}

// SetConversationCount sets the live conversation gauge.
func SetConversationCount(n int) {
	if !IsMetricsEnabled() {
		return
	}
	conversationsLive.Set(float64(n))
}
