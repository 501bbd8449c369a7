package scoring

import (
	"context"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ScoreBatch scores every set with at most workers concurrent tasks. Each task writes only
// its own slot, so results keep the input order. Cancelling ctx stops dispatching further
// sets and ScoreBatch returns ctx.Err().
func ScoreBatch(ctx context.Context, p *Pipeline, sets []IndicatorSet, workers int) ([]ScoreResult, error) {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	results := make([]ScoreResult, len(sets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range sets {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.Score(sets[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// CarryoverMedian returns the median carryover ratio over sets that have a primary source and a
// reported carryover. Negative raws count as 0. Returns nil when no set qualifies.
func CarryoverMedian(sets []IndicatorSet) *float64 {
	values := make([]float64, 0, len(sets))
	for _, s := range sets {
		if !s.HasPrimarySource() || !present(s.CarryoverRatio) {
			continue
		}
		values = append(values, math.Max(*s.CarryoverRatio, 0))
	}
	if len(values) == 0 {
		return nil
	}
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return float64Ptr(values[mid])
	}
	return float64Ptr((values[mid-1] + values[mid]) / 2)
}

// WithCarryoverMedian returns a copy of sets where every missing CarryoverMedian is set to median.
// A nil median returns the sets unchanged.
func WithCarryoverMedian(sets []IndicatorSet, median *float64) []IndicatorSet {
	out := make([]IndicatorSet, len(sets))
	copy(out, sets)
	if median == nil {
		return out
	}
	for i := range out {
		if out[i].CarryoverMedian == nil {
			out[i].CarryoverMedian = float64Ptr(*median)
		}
	}
	return out
}
