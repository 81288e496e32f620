// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

// Package metrics provides Prometheus instrumentation for the ingestion
// pipeline: upstream fetches, credit budget, token exchanges, transform
// throughput and snapshot freshness. Collectors are package-level and
// registered via promauto on the default registry, served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream fetch metrics
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opensky_fetches_total",
			Help: "Total number of upstream state-vector fetches",
		},
		[]string{"region", "outcome"}, // outcome: success, denied, error
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opensky_fetch_duration_seconds",
			Help:    "Duration of upstream state-vector fetches in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"region"},
	)

	StateVectorsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opensky_state_vectors_total",
			Help: "Total number of raw state vectors received",
		},
		[]string{"region"},
	)

	// Token manager metrics
	TokenExchangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opensky_token_exchanges_total",
			Help: "Total number of OAuth2 client-credentials exchanges",
		},
		[]string{"outcome"}, // outcome: success, failure
	)

	// Budget tracker metrics
	CreditsGranted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "budget_credits_granted_total",
			Help: "Total API credits granted by the budget tracker",
		},
	)

	AuthorizationsDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "budget_authorizations_denied_total",
			Help: "Total query authorizations denied for lack of credits",
		},
		[]string{"region"},
	)

	WindowConsumption = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "budget_window_consumed_credits",
			Help: "Credits consumed within the current rolling 24h window",
		},
	)

	// Transform metrics
	RecordsTransformed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transform_records_total",
			Help: "Total raw records processed by the transform pipeline",
		},
		[]string{"region", "outcome"}, // outcome: kept, dropped
	)

	// Analytics metrics
	AnomaliesFlagged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_anomalies_flagged_total",
			Help: "Total records flagged anomalous",
		},
		[]string{"region"},
	)

	// Snapshot store metrics
	SnapshotsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshots_published_total",
			Help: "Total snapshots published per region",
		},
		[]string{"region"},
	)

	SnapshotAge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snapshot_age_seconds",
			Help: "Age of the current snapshot per region (staleness signal)",
		},
		[]string{"region"},
	)

	// Circuit breaker metrics
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "upstream_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	BreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_breaker_requests_total",
			Help: "Requests through the upstream circuit breaker by result",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	// API surface metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)
)
