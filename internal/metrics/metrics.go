// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecommendationRequests counts recommendation requests by outcome
	// (ok, validation, auth, provider, no_tracks, storage).
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mood_recommendation_requests_total",
			Help: "Recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	// ProviderCalls counts provider calls by endpoint and result.
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mood_provider_calls_total",
			Help: "Calls to the music provider by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)

	// ProviderCallDuration observes provider call latency by endpoint.
	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mood_provider_call_duration_seconds",
			Help:    "Music provider call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// SearchFallbacks counts requests that fell back from recommendations to search.
	SearchFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mood_search_fallbacks_total",
			Help: "Recommendation requests served by the search fallback",
		},
	)

	// GenreVocabularyFallbacks counts uses of the static genre list.
	GenreVocabularyFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mood_genre_vocabulary_fallbacks_total",
			Help: "Times the static genre list replaced the live vocabulary",
		},
	)

	// DetectionOutcomes counts finished detection cycles by final state.
	DetectionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mood_detection_outcomes_total",
			Help: "Detection cycles by final state",
		},
		[]string{"state"},
	)

	// DegradedSamples counts synthetic samples substituted for failed inference.
	DegradedSamples = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mood_degraded_samples_total",
			Help: "Synthetic emotion samples produced in degraded mode",
		},
	)
)
