// Package metrics exposes Prometheus collectors for the harvester and the
// extraction pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	apiRequestsTotal        *prometheus.CounterVec
	apiRequestDuration      *prometheus.HistogramVec
	quotaWaitSeconds        prometheus.Histogram
	matchesSavedTotal       prometheus.Counter
	matchesSkippedTotal     *prometheus.CounterVec
	frontierSize            prometheus.Gauge
	rowsWrittenTotal        *prometheus.CounterVec
	catalogFailuresTotal    prometheus.Counter
	harvestRunsTotal        *prometheus.CounterVec
	harvestIdentifiersTotal prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		apiRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kraken_api_requests_total",
				Help: "Remote API requests, labeled by endpoint and status class.",
			},
			[]string{"endpoint", "status"},
		)

		apiRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kraken_api_request_duration_seconds",
				Help:    "Remote API latency excluding quota waits, labeled by endpoint.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"endpoint"},
		)

		quotaWaitSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kraken_quota_wait_seconds",
				Help:    "Time callers spent blocked in the quota governor.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
			},
		)

		matchesSavedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "kraken_matches_saved_total",
				Help: "Matches newly written to the match store.",
			},
		)

		matchesSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kraken_matches_skipped_total",
				Help: "Matches not written, labeled by reason.",
			},
			[]string{"reason"},
		)

		frontierSize = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kraken_frontier_queued",
				Help: "Identifiers waiting in the crawl frontier.",
			},
		)

		rowsWrittenTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kraken_rows_written_total",
				Help: "Rows written by extraction and dataset builds, labeled by table.",
			},
			[]string{"table"},
		)

		catalogFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "kraken_catalog_failures_total",
				Help: "Match catalog writes that failed.",
			},
		)

		harvestRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kraken_harvest_runs_total",
				Help: "Completed harvest runs, labeled by stop reason.",
			},
			[]string{"reason"},
		)

		harvestIdentifiersTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "kraken_harvest_identifiers_total",
				Help: "Identifiers drained from the frontier.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StatusClass groups HTTP status codes into a low-cardinality label.
func StatusClass(code int) string {
	switch {
	case code == 0:
		return "error"
	case code == http.StatusTooManyRequests:
		return "429"
	case code >= 100 && code < 600:
		return strconv.Itoa(code/100) + "xx"
	default:
		return "other"
	}
}

// ObserveAPIRequest records one remote call.
func ObserveAPIRequest(endpoint string, code int, duration time.Duration) {
	Init()
	apiRequestsTotal.WithLabelValues(endpoint, StatusClass(code)).Inc()
	apiRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// ObserveQuotaWait records time spent blocked on the quota governor.
func ObserveQuotaWait(duration time.Duration) {
	Init()
	quotaWaitSeconds.Observe(duration.Seconds())
}

// ObserveMatchSaved increments the saved-match counter.
func ObserveMatchSaved() {
	Init()
	matchesSavedTotal.Inc()
}

// ObserveMatchSkipped increments the skipped-match counter for reason.
func ObserveMatchSkipped(reason string) {
	Init()
	matchesSkippedTotal.WithLabelValues(reason).Inc()
}

// SetFrontierSize publishes the number of queued identifiers.
func SetFrontierSize(n int) {
	Init()
	frontierSize.Set(float64(n))
}

// ObserveRowsWritten adds n rows to the table counter.
func ObserveRowsWritten(table string, n int) {
	Init()
	rowsWrittenTotal.WithLabelValues(table).Add(float64(n))
}

// ObserveCatalogFailure increments the catalog failure counter.
func ObserveCatalogFailure() {
	Init()
	catalogFailuresTotal.Inc()
}

// ObserveHarvestRun records a finished run.
func ObserveHarvestRun(reason string) {
	Init()
	harvestRunsTotal.WithLabelValues(reason).Inc()
}

// ObserveIdentifierDrained increments the drained identifier counter.
func ObserveIdentifierDrained() {
	Init()
	harvestIdentifiersTotal.Inc()
}
