// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the advisor
// service: validation request counters, per-batch provider latency,
// violation counts, and active stream gauges. Metrics are exposed via
// the /metrics endpoint.
//
// All metric operations are thread-safe via Prometheus's internal
// locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "textmate"

const advisorSubsystem = "advisor"

// AdvisorMetrics holds all Prometheus metrics for validation requests.
type AdvisorMetrics struct {
	// RequestsTotal counts validation requests by endpoint and status.
	// Labels: endpoint (validate, validate_stream, quick_action), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// BatchesTotal counts rule batches sent to the completion provider.
	// Labels: status (success, error)
	BatchesTotal *prometheus.CounterVec

	// ViolationsTotal counts rule violations reported by the provider.
	ViolationsTotal prometheus.Counter

	// ProviderLatencySeconds measures one completion call per batch.
	ProviderLatencySeconds prometheus.Histogram

	// ActiveStreams tracks currently open validation streams.
	ActiveStreams prometheus.Gauge

	// ClientDisconnectsTotal counts streams abandoned by the client
	// before the last batch finished.
	ClientDisconnectsTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance of AdvisorMetrics.
// Initialized by InitMetrics(); nil when metrics are disabled, so all
// users must nil-check before recording.
var DefaultMetrics *AdvisorMetrics

// InitMetrics initializes the default metrics instance. Call once at
// startup; a second call panics on duplicate registration.
func InitMetrics() *AdvisorMetrics {
	DefaultMetrics = &AdvisorMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "requests_total",
				Help:      "Total validation requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		BatchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "batches_total",
				Help:      "Total rule batches sent to the completion provider",
			},
			[]string{"status"},
		),

		ViolationsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "violations_total",
				Help:      "Total rule violations reported by the completion provider",
			},
		),

		ProviderLatencySeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "provider_latency_seconds",
				Help:      "Completion provider latency per rule batch in seconds",
				Buckets:   []float64{0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
		),

		ActiveStreams: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "active_streams",
				Help:      "Number of currently open validation streams",
			},
		),

		ClientDisconnectsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "client_disconnects_total",
				Help:      "Validation streams abandoned by the client before completion",
			},
		),
	}
	return DefaultMetrics
}
