// Package metrics provides Prometheus metrics for fincheck.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fincheck"

var (
	// VerdictsTotal counts final verdicts by label and by whether the online
	// expansion produced them.
	VerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Total number of verdicts returned",
		},
		[]string{"verdict", "stage"},
	)

	// FallbackTotal counts hybrid fallback decisions.
	FallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_total",
			Help:      "Outcomes of the online fallback decision",
		},
		[]string{"outcome"},
	)

	// OnlineSourceErrorsTotal counts degraded fetches per online source.
	OnlineSourceErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "online_source_errors_total",
			Help:      "Total number of failed online source fetches",
		},
		[]string{"source"},
	)

	// OnlineArticlesTotal counts online candidates at each fetch stage.
	OnlineArticlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "online_articles_total",
			Help:      "Online candidate articles by stage",
		},
		[]string{"stage"},
	)

	// LLMAttemptsTotal counts completion attempts by response mode.
	LLMAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_attempts_total",
			Help:      "Total number of LLM completion attempts",
		},
		[]string{"mode", "status"},
	)

	// RetrievalDuration measures local evidence retrieval.
	RetrievalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Duration of local evidence retrieval in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// RequestDuration measures HTTP request handling.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// IndexedChunks reports the size of the loaded index.
	IndexedChunks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_chunks",
			Help:      "Number of chunks in the loaded index",
		},
	)
)

// RecordVerdict records a verdict returned to a caller.
func RecordVerdict(verdict string, expanded bool) {
	stage := "local"
	if expanded {
		stage = "expanded"
	}
	VerdictsTotal.WithLabelValues(verdict, stage).Inc()
}

// RecordFallback records the outcome of a fallback decision.
func RecordFallback(outcome string) {
	FallbackTotal.WithLabelValues(outcome).Inc()
}

// RecordSourceError records a degraded online fetch.
func RecordSourceError(source string) {
	OnlineSourceErrorsTotal.WithLabelValues(source).Inc()
}

// RecordArticles records n online candidates reaching stage.
func RecordArticles(stage string, n int) {
	OnlineArticlesTotal.WithLabelValues(stage).Add(float64(n))
}

// RecordLLMAttempt records one completion attempt.
func RecordLLMAttempt(jsonMode bool, err error) {
	mode := "plain"
	if jsonMode {
		mode = "json"
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	LLMAttemptsTotal.WithLabelValues(mode, status).Inc()
}

// RecordRequest records an HTTP request.
func RecordRequest(method, route, status string, duration float64) {
	RequestDuration.WithLabelValues(method, route, status).Observe(duration)
}
