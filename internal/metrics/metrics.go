// Package metrics defines huddle's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "huddle", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by key class."},
		[]string{"key_class"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "huddle", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by key class."},
		[]string{"key_class"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "huddle", Name: "http_requests_total", Help: "Number of HTTP requests by method and status."},
		[]string{"method", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "huddle", Name: "http_request_duration_seconds", Help: "HTTP request latency.", Buckets: prometheus.DefBuckets},
		[]string{"method"},
	)
	AuditEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "huddle", Name: "audit_events_total", Help: "Number of security audit events by type and outcome."},
		[]string{"event", "outcome"},
	)
	SessionsRotated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "huddle", Name: "sessions_rotated_total", Help: "Number of successful refresh-token rotations."},
	)
	SessionReuseDetected = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "huddle", Name: "session_reuse_detected_total", Help: "Number of refresh-token reuse detections."},
	)
)

// RegisterCollectors registers every collector on reg.
func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(
		RateLimitAllowed,
		RateLimitRejected,
		HTTPRequests,
		HTTPDuration,
		AuditEvents,
		SessionsRotated,
		SessionReuseDetected,
	)
}
