package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExtractionsTotal tracks extraction outcomes per provider
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractor_extractions_total",
			Help: "Total number of extraction attempts by outcome",
		},
		[]string{"provider", "outcome"},
	)

	// ExtractionLatency tracks end-to-end extraction latency
	ExtractionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "extractor_extraction_latency_seconds",
			Help:    "End-to-end extraction latency in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		},
		[]string{"provider"},
	)

	// ProviderCallsTotal tracks raw provider invocations
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractor_provider_calls_total",
			Help: "Total number of provider invocations",
		},
		[]string{"provider"},
	)

	// ProviderErrorsTotal tracks provider failures per category
	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractor_provider_errors_total",
			Help: "Total number of provider errors by failure category",
		},
		[]string{"provider", "category"},
	)

	// CacheHits tracks response cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "extractor_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	// CacheMisses tracks response cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "extractor_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// FallbacksTotal tracks how often the fallback chain advanced past a provider
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractor_fallbacks_total",
			Help: "Total number of fallback transitions away from a provider",
		},
		[]string{"from"},
	)

	// BreakerState exposes the circuit state per provider (0=closed, 1=open, 2=half_open)
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "extractor_breaker_state",
			Help: "Circuit breaker state per provider (0=closed, 1=open, 2=half_open)",
		},
		[]string{"provider"},
	)

	// BreakerTransitions tracks breaker state transitions
	BreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractor_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"provider", "to"},
	)

	// RecordsPersisted tracks successfully materialized job records
	RecordsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "extractor_records_persisted_total",
			Help: "Total number of job records handed to the persistence sink",
		},
	)
)
