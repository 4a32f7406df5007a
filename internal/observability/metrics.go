package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	requestsTotal            *prometheus.CounterVec
	latencySeconds           *prometheus.HistogramVec
	errorsTotal              *prometheus.CounterVec
	generationAttemptsTotal  prometheus.Counter
	generationRetriesTotal   prometheus.Counter
	generationOutcomesTotal  *prometheus.CounterVec
	reconcileRunsTotal       *prometheus.CounterVec
	localCacheOpsTotal       *prometheus.CounterVec
	milestoneCrossingsTotal  *prometheus.CounterVec
	realtimeClientsActiveNum prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arah_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arah_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arah_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		generationAttemptsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arah_generation_attempts_total",
			Help: "Total generation requests sent to the AI provider, retries included.",
		})

		generationRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arah_generation_retries_total",
			Help: "Inter-attempt retries performed by the generation client.",
		})

		generationOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arah_generation_outcomes_total",
			Help: "Tagged outcomes of generation pipeline runs.",
		}, []string{"outcome"})

		reconcileRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arah_reconcile_runs_total",
			Help: "Change-feed reconciliation runs by result.",
		}, []string{"result"})

		localCacheOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arah_local_cache_ops_total",
			Help: "Local cache blob operations by kind and result.",
		}, []string{"op", "result"})

		milestoneCrossingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arah_milestone_crossings_total",
			Help: "One-time progress milestone crossings.",
		}, []string{"threshold"})

		realtimeClientsActiveNum = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arah_realtime_clients_active",
			Help: "Currently connected realtime stream clients.",
		})

		prometheus.MustRegister(
			requestsTotal,
			latencySeconds,
			errorsTotal,
			generationAttemptsTotal,
			generationRetriesTotal,
			generationOutcomesTotal,
			reconcileRunsTotal,
			localCacheOpsTotal,
			milestoneCrossingsTotal,
			realtimeClientsActiveNum,
		)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// Errors exposes the counter for API error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return errorsTotal
}

// GenerationAttempts counts every request sent to the AI provider.
func GenerationAttempts() prometheus.Counter {
	RegisterMetrics()
	return generationAttemptsTotal
}

// GenerationRetries counts inter-attempt retries.
func GenerationRetries() prometheus.Counter {
	RegisterMetrics()
	return generationRetriesTotal
}

// GenerationOutcomes counts tagged pipeline outcomes.
func GenerationOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return generationOutcomesTotal
}

// ReconcileRuns counts change-feed reconciliation runs.
func ReconcileRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return reconcileRunsTotal
}

// LocalCacheOps counts local cache blob reads and writes.
func LocalCacheOps() *prometheus.CounterVec {
	RegisterMetrics()
	return localCacheOpsTotal
}

// MilestoneCrossings counts one-time progress milestone crossings.
func MilestoneCrossings() *prometheus.CounterVec {
	RegisterMetrics()
	return milestoneCrossingsTotal
}

// RealtimeClientsActive tracks connected realtime stream clients.
func RealtimeClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return realtimeClientsActiveNum
}
