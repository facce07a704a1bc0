// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics contains the gatehouse Prometheus metrics.
type Metrics struct {
	AuthRequestsTotal   *prometheus.CounterVec
	GateDecisionsTotal  *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry preloaded with the Go runtime and process
// collectors. A private registry keeps tests independent of the global one.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// NewMetrics creates and registers the gatehouse metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_auth_requests_total",
				Help: "Total number of register and login requests by outcome",
			},
			[]string{"operation", "outcome"},
		),
		GateDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_gate_decisions_total",
				Help: "Total number of access gate decisions by stage and outcome",
			},
			[]string{"stage", "outcome"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatehouse_http_request_duration_seconds",
				Help:    "HTTP request latency by route and status code",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "code"},
		),
	}

	reg.MustRegister(m.AuthRequestsTotal, m.GateDecisionsTotal, m.HTTPRequestDuration)
	return m
}

// RecordAuthRequest counts a register or login attempt.
func (m *Metrics) RecordAuthRequest(operation, outcome string) {
	m.AuthRequestsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordGateDecision counts an authenticate or authorize-admin decision.
func (m *Metrics) RecordGateDecision(stage, outcome string) {
	m.GateDecisionsTotal.WithLabelValues(stage, outcome).Inc()
}

// ObserveHTTPRequest records the latency of a finished request.
func (m *Metrics) ObserveHTTPRequest(route string, code int, elapsed time.Duration) {
	m.HTTPRequestDuration.WithLabelValues(route, strconv.Itoa(code)).Observe(elapsed.Seconds())
}
