// Package telemetry defines the Prometheus metrics emitted across the
// HTTP surface and the two domain services, grounded on the teacher's
// internal/telemetry package (itself re-exporting the vendored
// wisbric/core telemetry registry) — reimplemented directly here since
// wisbric/core is a private, non-fetchable module (see DESIGN.md).
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration records request latency by method, route, and
// status code, mirroring the teacher's Metrics middleware.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "nospoilers_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// LoginAttemptsTotal counts login attempts by provider and outcome.
var LoginAttemptsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "nospoilers_login_attempts_total",
		Help: "Total login attempts by provider and outcome.",
	},
	[]string{"provider", "outcome"},
)

// OTPSendsTotal counts OTP send attempts by outcome.
var OTPSendsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "nospoilers_otp_sends_total",
		Help: "Total OTP send attempts by outcome.",
	},
	[]string{"outcome"},
)

// RateLimitBlocksTotal counts requests rejected by the rate limiter, by key prefix.
var RateLimitBlocksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "nospoilers_rate_limit_blocks_total",
		Help: "Total requests rejected by the rate limiter, by key prefix.",
	},
	[]string{"key_prefix"},
)

// ProgressMutationsTotal counts markAsRead/rollback calls by kind and outcome.
var ProgressMutationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "nospoilers_progress_mutations_total",
		Help: "Total progress mutations by kind (mark_read, rollback) and outcome.",
	},
	[]string{"kind", "outcome"},
)

// NewRegistry creates a Prometheus registry with this package's
// collectors plus the standard Go/process collectors, matching the
// teacher's metrics registration pattern.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
		LoginAttemptsTotal,
		OTPSendsTotal,
		RateLimitBlocksTotal,
		ProgressMutationsTotal,
	)
	return reg
}
