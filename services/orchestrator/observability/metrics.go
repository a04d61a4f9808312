// Copyright (C) 2025 PolicyLab (dev@policylab.kr)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the chat service.
//
// Metrics cover chat turns (by mode and outcome), turn latency, retrieval
// fallbacks, and the live session count. They are exposed on /metrics and
// are intended for a standard Prometheus + Grafana setup.
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "youthchat"

const chatSubsystem = "chat"

// ChatMetrics holds the Prometheus metrics for the chat pipeline.
// Initialize once at startup via InitMetrics().
type ChatMetrics struct {
	// TurnsTotal counts chat turns.
	// Labels: mode (onboarding, answer), status (ok, rejected, confirmation, fallback)
	TurnsTotal *prometheus.CounterVec

	// TurnDurationSeconds measures full turn latency including generation.
	// Labels: mode (onboarding, answer)
	TurnDurationSeconds *prometheus.HistogramVec

	// FallbacksTotal counts canned-answer fallbacks after backend failures.
	// Labels: failure_kind (timeout, unreachable, malformed)
	FallbacksTotal *prometheus.CounterVec

	// LowConfidenceTotal counts answers where retrieval fell below the
	// confidence floor.
	LowConfidenceTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance of ChatMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *ChatMetrics

// InitMetrics creates and registers all chat metrics on the default
// Prometheus registry. Call once at application startup; a second call
// panics on duplicate registration.
func InitMetrics() *ChatMetrics {
	DefaultMetrics = newChatMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}

// newChatMetrics registers the metric set on the given registerer. Tests
// pass their own registry to avoid cross-test registration panics.
func newChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	factory := promauto.With(reg)
	return &ChatMetrics{
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "turns_total",
				Help:      "Total chat turns by mode and outcome",
			},
			[]string{"mode", "status"},
		),

		TurnDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "turn_duration_seconds",
				Help:      "Full chat turn latency in seconds",
				Buckets:   []float64{0.01, 0.05, 0.25, 1, 5, 15, 60, 180},
			},
			[]string{"mode"},
		),

		FallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "fallbacks_total",
				Help:      "Canned fallback answers by backend failure kind",
			},
			[]string{"failure_kind"},
		),

		LowConfidenceTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "low_confidence_total",
				Help:      "Answers generated below the retrieval confidence floor",
			},
		),
	}
}

// RegisterActiveSessions exposes the live session count as a gauge backed
// by the store's own counter, so the metric can never drift from reality.
func RegisterActiveSessions(count func() float64) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: chatSubsystem,
		Name:      "active_sessions",
		Help:      "Sessions currently held in the in-memory store",
	}, count)
}
