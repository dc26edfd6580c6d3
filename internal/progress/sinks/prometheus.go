package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/kraken/internal/progress"
)

// PrometheusSink mirrors the latest snapshot into gauges and records run
// completions.
type PrometheusSink struct {
	matchesSaved  prometheus.Gauge
	alreadyStored prometheus.Gauge
	frontierSize  prometheus.Gauge
	visited       prometheus.Gauge
	rate          prometheus.Gauge
	errors        *prometheus.GaugeVec
	runsCompleted *prometheus.CounterVec
	runDuration   prometheus.Histogram
}

// NewPrometheusSink registers the collectors against reg.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		matchesSaved: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kraken_run_matches_saved",
			Help: "Matches saved by the current run.",
		}),
		alreadyStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kraken_run_matches_already_stored",
			Help: "Listed matches skipped because they were already stored.",
		}),
		frontierSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kraken_run_frontier_size",
			Help: "Identifiers waiting in the frontier at the last snapshot.",
		}),
		visited: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kraken_run_identifiers_visited",
			Help: "Identifiers enqueued so far in the current run.",
		}),
		rate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kraken_run_matches_per_minute",
			Help: "Average save rate of the current run.",
		}),
		errors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kraken_run_errors",
			Help: "Skipped errors in the current run partitioned by class.",
		}, []string{"class"}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kraken_runs_completed_total",
			Help: "Completed harvest runs partitioned by stop reason.",
		}, []string{"reason"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kraken_run_duration_seconds",
			Help:    "Wall time of completed runs.",
			Buckets: []float64{60, 300, 600, 1800, 3600, 7200, 14400, 28800},
		}),
	}
	for _, c := range []prometheus.Collector{
		s.matchesSaved,
		s.alreadyStored,
		s.frontierSize,
		s.visited,
		s.rate,
		s.errors,
		s.runsCompleted,
		s.runDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Snapshot) error {
	for _, snap := range batch {
		s.matchesSaved.Set(float64(snap.MatchesSaved))
		s.alreadyStored.Set(float64(snap.AlreadyStored))
		s.frontierSize.Set(float64(snap.FrontierSize))
		s.visited.Set(float64(snap.IdentifiersVisited))
		s.rate.Set(snap.Rate())
		s.errors.WithLabelValues("transient").Set(float64(snap.TransientErrors))
		s.errors.WithLabelValues("parse").Set(float64(snap.ParseErrors))
		if snap.Stage == progress.StageStop {
			s.runsCompleted.WithLabelValues(snap.Reason).Inc()
			s.runDuration.Observe(snap.Elapsed.Seconds())
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
