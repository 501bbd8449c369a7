// Package metrics exposes Prometheus collectors for scoring runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
)

const namespace = "solvency"

// Metrics groups the scoring collectors. Build one per registry.
type Metrics struct {
	runs        *prometheus.CounterVec
	results     *prometheus.CounterVec
	flags       *prometheus.CounterVec
	overrides   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	lastRunSize *prometheus.GaugeVec
	scores      *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Scoring runs by profile version and final status.",
		}, []string{"profile", "status"}),
		results: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_total",
			Help:      "Emitted score results by profile version and tier.",
		}, []string{"profile", "tier"}),
		flags: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flags_total",
			Help:      "Advisory flags attached to emitted results.",
		}, []string{"profile", "code"}),
		overrides: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "punitive_overrides_total",
			Help:      "Results where the punitive override zeroed an indicator contribution.",
		}, []string{"profile"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a scoring run, persistence included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"profile"}),
		lastRunSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_municipalities",
			Help:      "Municipalities scored by the most recent run.",
		}, []string{"profile"}),
		scores: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score",
			Help:      "Distribution of computable scores.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}, []string{"profile"}),
	}
}

// ObserveRun records one finished run.
func (m *Metrics) ObserveRun(profile, status string, results []scoring.ScoreResult, elapsed time.Duration) {
	m.runs.WithLabelValues(profile, status).Inc()
	m.runDuration.WithLabelValues(profile).Observe(elapsed.Seconds())
	m.lastRunSize.WithLabelValues(profile).Set(float64(len(results)))

	for _, r := range results {
		m.results.WithLabelValues(profile, string(r.Tier)).Inc()
		for _, f := range r.Flags {
			m.flags.WithLabelValues(profile, string(f.Code)).Inc()
		}
		for _, f := range r.Factors {
			if f.Overridden {
				m.overrides.WithLabelValues(profile).Inc()
				break
			}
		}
		if r.Score != nil {
			m.scores.WithLabelValues(profile).Observe(*r.Score)
		}
	}
}

// ObserveFailure records a run that aborted before producing results.
func (m *Metrics) ObserveFailure(profile string, elapsed time.Duration) {
	m.runs.WithLabelValues(profile, "failed").Inc()
	m.runDuration.WithLabelValues(profile).Observe(elapsed.Seconds())
}
