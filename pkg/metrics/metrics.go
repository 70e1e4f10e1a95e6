// Package metrics holds the Prometheus collectors shared across the service.
// They register on the default registry, which the router exposes at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Chat turns
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Chat turns by final outcome",
		},
		[]string{"outcome"}, // success, validation, not_found, insufficient_credits, no_response_generated, api_error, canceled
	)

	TurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_turn_duration_seconds",
			Help:    "End-to-end duration of a chat turn",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// Generation calls
	GenerationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_attempts_total",
			Help: "Calls to the text generation API by result",
		},
		[]string{"result"}, // success, transient, permanent
	)

	GenerationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_latency_seconds",
			Help:    "Latency of individual generation attempts",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
		[]string{"model"},
	)

	CreditsDebited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "credits_debited_total",
			Help: "Credits debited for successful turns",
		},
	)

	CreditDebitFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "credit_debit_failures_total",
			Help: "Successful turns whose credit debit failed",
		},
	)

	// Recommendations
	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Duration of a recommendation pass",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"}, // characters, emotion
	)

	KeywordCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emotion_keyword_cache_hits_total",
			Help: "Emotion keyword lookups served from cache",
		},
	)

	KeywordCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emotion_keyword_cache_misses_total",
			Help: "Emotion keyword lookups that went to the database",
		},
	)

	KeywordCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emotion_keyword_cache_evictions_total",
			Help: "Emotion keyword lists dropped from cache",
		},
	)

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// WebSocket
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Open websocket turn channels",
		},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
