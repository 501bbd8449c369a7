package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Solvency/internal/collector"
	"github.com/MikeSquared-Agency/Solvency/internal/config"
	"github.com/MikeSquared-Agency/Solvency/internal/events"
	"github.com/MikeSquared-Agency/Solvency/internal/metrics"
	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
	"github.com/MikeSquared-Agency/Solvency/internal/store"
)

// Request is one batch to score. An empty ProfileVersion selects the registry default.
// CarryoverMedian overrides the median computed from Sets.
type Request struct {
	ProfileVersion  string
	Period          string
	Source          string
	Sets            []scoring.IndicatorSet
	CarryoverMedian *float64
}

// Runner drives scoring runs: it scores a batch, persists it and announces the outcome.
// Store, events, collector and metrics are optional.
type Runner struct {
	store     store.Store
	events    events.Client
	collector collector.Client
	registry  *scoring.Registry
	metrics   *metrics.Metrics
	cfg       *config.Config
	logger    *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func New(s store.Store, ev events.Client, c collector.Client, reg *scoring.Registry, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:     s,
		events:    ev,
		collector: c,
		registry:  reg,
		metrics:   m,
		cfg:       cfg,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Registry returns the profile registry runs are resolved against.
func (r *Runner) Registry() *scoring.Registry {
	return r.registry
}

// Pipeline binds the profile for version ("" selects the default).
func (r *Runner) Pipeline(version string) (*scoring.Pipeline, error) {
	profile, err := r.registry.Get(version)
	if err != nil {
		return nil, err
	}
	return scoring.NewPipeline(profile, r.logger)
}

func (r *Runner) workers() int {
	if r.cfg == nil {
		return 0
	}
	return r.cfg.Scoring.Workers
}

// Score scores req without recording a run or publishing events.
func (r *Runner) Score(ctx context.Context, req Request) ([]scoring.ScoreResult, error) {
	pipeline, err := r.Pipeline(req.ProfileVersion)
	if err != nil {
		return nil, err
	}
	return scoring.ScoreBatch(ctx, pipeline, withMedian(req), r.workers())
}

// withMedian fills missing carryover medians from the request, else from the batch itself.
func withMedian(req Request) []scoring.IndicatorSet {
	median := req.CarryoverMedian
	if median == nil {
		median = scoring.CarryoverMedian(req.Sets)
	}
	return scoring.WithCarryoverMedian(req.Sets, median)
}

// ErrDuplicateMunicipality is returned by Run when a batch names the same municipality twice.
// A run holds at most one result per municipality.
var ErrDuplicateMunicipality = errors.New("duplicate municipality in batch")

func checkCodes(sets []scoring.IndicatorSet) error {
	seen := make(map[string]bool, len(sets))
	for _, s := range sets {
		code := s.Municipality.Code
		if seen[code] {
			return fmt.Errorf("%w: %q", ErrDuplicateMunicipality, code)
		}
		seen[code] = true
	}
	return nil
}

// Run scores req as one run. Profile and batch errors abort before a run is recorded; any later failure
// marks the run failed and is returned.
func (r *Runner) Run(ctx context.Context, req Request) (*store.Run, []scoring.ScoreResult, error) {
	pipeline, err := r.Pipeline(req.ProfileVersion)
	if err != nil {
		return nil, nil, err
	}
	if err := checkCodes(req.Sets); err != nil {
		return nil, nil, err
	}
	version := pipeline.Profile().Version
	start := time.Now()

	run := &store.Run{
		ProfileVersion: version,
		Period:         req.Period,
		Source:         req.Source,
		Status:         store.RunRunning,
	}
	if r.store != nil {
		if err := r.store.CreateRun(ctx, run); err != nil {
			return nil, nil, fmt.Errorf("create run: %w", err)
		}
	} else {
		run.ID = uuid.New()
		run.StartedAt = start.UTC()
	}
	runID := run.ID.String()
	logger := r.logger.With("run_id", runID, "profile", version)
	logger.Info("scoring run started", "municipalities", len(req.Sets), "period", req.Period)

	r.publish(events.SubjectRunStarted(runID), events.RunStartedEvent{
		RunID:          runID,
		ProfileVersion: version,
		Period:         req.Period,
		Municipalities: len(req.Sets),
	})

	results, err := scoring.ScoreBatch(ctx, pipeline, withMedian(req), r.workers())
	if err != nil {
		return run, nil, r.fail(ctx, run, start, fmt.Errorf("score batch: %w", err))
	}

	if r.store != nil {
		if err := r.store.SaveResults(ctx, run.ID, results); err != nil {
			return run, nil, r.fail(ctx, run, start, fmt.Errorf("save results: %w", err))
		}
	}

	run.Tally(results)
	run.Status = store.RunCompleted
	if r.store != nil {
		if err := r.store.CompleteRun(ctx, run); err != nil {
			return run, nil, r.fail(ctx, run, start, fmt.Errorf("complete run: %w", err))
		}
	} else {
		now := time.Now().UTC()
		run.CompletedAt = &now
	}
	elapsed := time.Since(start)

	for _, res := range results {
		r.publish(events.SubjectScoreEmitted(res.Municipality.Code), events.ScoreEmittedEvent{
			RunID:  runID,
			Result: res,
		})
	}
	r.publish(events.SubjectRunCompleted(runID), events.RunCompletedEvent{
		RunID:          runID,
		ProfileVersion: version,
		Total:          run.Total,
		Computable:     run.Computable,
		NotComputable:  run.NotComputable,
		Suspect:        run.Suspect,
		Tiers:          TierCounts(results),
		DurationMs:     elapsed.Milliseconds(),
		Timestamp:      time.Now().UTC(),
	})

	if r.metrics != nil {
		r.metrics.ObserveRun(version, string(store.RunCompleted), results, elapsed)
	}
	logger.Info("scoring run completed",
		"total", run.Total,
		"computable", run.Computable,
		"not_computable", run.NotComputable,
		"suspect", run.Suspect,
		"duration_ms", elapsed.Milliseconds(),
	)
	return run, results, nil
}

func (r *Runner) fail(ctx context.Context, run *store.Run, start time.Time, cause error) error {
	run.Status = store.RunFailed
	run.Error = cause.Error()
	runID := run.ID.String()

	if r.store != nil {
		// Record the failure even when ctx was the reason.
		if err := r.store.CompleteRun(context.WithoutCancel(ctx), run); err != nil {
			r.logger.Error("failed to record run failure", "run_id", runID, "error", err)
		}
	}
	r.publish(events.SubjectRunFailed(runID), events.RunFailedEvent{
		RunID:          runID,
		ProfileVersion: run.ProfileVersion,
		Error:          run.Error,
	})
	if r.metrics != nil {
		r.metrics.ObserveFailure(run.ProfileVersion, time.Since(start))
	}
	r.logger.Error("scoring run failed", "run_id", runID, "profile", run.ProfileVersion, "error", cause)
	return cause
}

func (r *Runner) publish(subject string, data interface{}) {
	if r.events == nil {
		return
	}
	if err := r.events.Publish(subject, data); err != nil {
		r.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

// TierCounts tallies results per tier.
func TierCounts(results []scoring.ScoreResult) map[scoring.Tier]int {
	counts := make(map[scoring.Tier]int)
	for _, res := range results {
		counts[res.Tier]++
	}
	return counts
}

// ErrNoCollector is returned by Refresh when no collector is configured.
var ErrNoCollector = errors.New("no collector configured")

// Refresh pulls the period's indicator sets and carryover median from the collector and scores
// them under the default profile.
func (r *Runner) Refresh(ctx context.Context, period string) (*store.Run, error) {
	if r.collector == nil {
		return nil, ErrNoCollector
	}
	sets, err := r.collector.FetchIndicators(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("fetch indicators: %w", err)
	}
	median, err := r.collector.FetchCarryoverMedian(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("fetch carryover median: %w", err)
	}
	run, _, err := r.Run(ctx, Request{
		Period:          period,
		Source:          "collector",
		Sets:            sets,
		CarryoverMedian: median,
	})
	return run, err
}

// Start launches the scheduled refresh loop when a refresh interval is configured.
func (r *Runner) Start(ctx context.Context) {
	if r.cfg == nil || r.collector == nil || r.cfg.RefreshInterval() <= 0 {
		return
	}
	r.wg.Add(1)
	go r.refreshLoop(ctx)
}

func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

func (r *Runner) refreshLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Refresh(ctx, r.cfg.Scoring.RefreshPeriod); err != nil {
				r.logger.Warn("scheduled refresh failed", "period", r.cfg.Scoring.RefreshPeriod, "error", err)
			}
		}
	}
}

// SetupSubscriptions registers the NATS subscription for submitted indicator batches.
func (r *Runner) SetupSubscriptions(ctx context.Context) {
	if r.events == nil {
		return
	}

	if err := r.events.Subscribe(events.SubjectIndicatorsSubmitted, func(_ string, data []byte) {
		r.handleBatch(ctx, data)
	}); err != nil {
		r.logger.Error("indicator intake disabled", "subject", events.SubjectIndicatorsSubmitted, "error", err)
	}
}

func (r *Runner) handleBatch(ctx context.Context, data []byte) {
	var batch events.IndicatorBatchEvent
	if err := json.Unmarshal(data, &batch); err != nil {
		r.logger.Warn("invalid indicator batch event", "error", err)
		return
	}
	source := batch.Source
	if source == "" {
		source = "nats"
	}
	if _, _, err := r.Run(ctx, Request{
		ProfileVersion: batch.ProfileVersion,
		Period:         batch.Period,
		Source:         source,
		Sets:           batch.Sets,
	}); err != nil {
		r.logger.Warn("indicator batch not scored", "profile", batch.ProfileVersion, "error", err)
	}
}
