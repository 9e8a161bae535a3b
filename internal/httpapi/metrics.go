package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunRequestsTotal counts run submissions by outcome.
	// Labels: outcome (accepted, busy, not_found, invalid)
	RunRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pipelined",
			Subsystem: "api",
			Name:      "run_requests_total",
			Help:      "Total number of run submissions by outcome",
		},
		[]string{"outcome"},
	)

	// RequestDuration tracks HTTP request latency.
	RequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pipelined",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
