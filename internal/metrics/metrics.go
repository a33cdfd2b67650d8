// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

// Package metrics provides Prometheus instrumentation for Commendo:
// API latency and throughput, recommendation serving, model rebuilds,
// cache efficiency, database queries, event ingestion, and the catalog
// importer. All collectors are registered on the default registry via
// promauto and exposed at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Recommendation serving metrics
	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_served_total",
			Help: "Total recommendation responses by mode and algorithm",
		},
		[]string{"mode", "algorithm"},
	)

	RecommendationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_errors_total",
			Help: "Total recommendation request failures by mode and reason",
		},
		[]string{"mode", "reason"},
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Recommendation scoring duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"mode"},
	)

	// Model rebuild metrics
	ModelRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_rebuilds_total",
			Help: "Total model rebuild attempts by outcome",
		},
		[]string{"outcome"}, // "committed", "failed", "rejected"
	)

	ModelRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "model_rebuild_duration_seconds",
			Help:    "Model rebuild duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800},
		},
	)

	ModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_version",
			Help: "Version of the currently serving similarity model",
		},
	)

	ModelProducts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_products",
			Help: "Number of products in the current similarity model",
		},
	)

	ModelSimilarityPairs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_similarity_pairs",
			Help: "Number of similarity pairs retained by the current model",
		},
	)

	// Recommendation cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_cache_hits_total",
			Help: "Total recommendation cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_cache_misses_total",
			Help: "Total recommendation cache misses",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommendation_cache_entries",
			Help: "Current number of cached recommendation entries",
		},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Interaction ingestion metrics
	InteractionsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interactions_published_total",
			Help: "Total interaction events published to the bus",
		},
		[]string{"kind"},
	)

	InteractionsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interactions_consumed_total",
			Help: "Total interaction events persisted by the consumer",
		},
		[]string{"kind"},
	)

	InteractionConsumeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "interaction_consume_errors_total",
			Help: "Total interaction events that failed to persist",
		},
	)

	// Importer metrics
	ImportRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_import_runs_total",
			Help: "Total catalog import runs by source and outcome",
		},
		[]string{"source", "outcome"}, // source: "remote", "seed"
	)

	ImportedProducts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_imported_products_total",
			Help: "Total products upserted by the importer",
		},
	)

	ImporterBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_importer_breaker_state",
			Help: "Importer circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// RecordAPIRequest records latency and outcome of one API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRecommendation records one served recommendation response.
func RecordRecommendation(mode, algorithm string, duration time.Duration) {
	RecommendationsServed.WithLabelValues(mode, algorithm).Inc()
	RecommendationDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordRecommendationError records a failed recommendation request.
func RecordRecommendationError(mode, reason string) {
	RecommendationErrors.WithLabelValues(mode, reason).Inc()
}

// RecordRebuild records a rebuild outcome and, when committed, updates the
// model gauges.
func RecordRebuild(outcome string, duration time.Duration, version, products, pairs int) {
	ModelRebuildsTotal.WithLabelValues(outcome).Inc()
	if outcome == "committed" {
		ModelRebuildDuration.Observe(duration.Seconds())
		ModelVersion.Set(float64(version))
		ModelProducts.Set(float64(products))
		ModelSimilarityPairs.Set(float64(pairs))
	}
}

// RecordDBQuery records a database query's latency, and its error if any.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
