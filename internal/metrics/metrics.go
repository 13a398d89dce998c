// Package metrics — Prometheus-метрики сервиса чата.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_appended_total",
			Help: "Messages persisted to channel logs",
		},
		[]string{"kind"}, // "pre" или "bk"
	)

	AppendLockRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_append_lock_retries_total",
			Help: "Channel lock acquisitions that had to be retried",
		},
	)

	AppendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_append_failures_total",
			Help: "Appends that failed after exhausting retries",
		},
	)

	AppendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_append_duration_seconds",
			Help:    "Channel append latency including lock wait",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 3},
		},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_rate_limit_hits_total",
			Help: "Send attempts rejected by the per-session limiter",
		},
	)

	IndexUpdateFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_index_update_failures_total",
			Help: "Conversation index updates that failed and were skipped",
		},
	)
)
