package scoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPipeline(t *testing.T, p ScoringProfile) *Pipeline {
	t.Helper()
	pl, err := NewPipeline(p, discardLogger())
	require.NoError(t, err)
	return pl
}

func scoreFactor(t *testing.T, r ScoreResult, ind Indicator) FactorResult {
	t.Helper()
	f, ok := r.Factor(ind)
	require.True(t, ok, "no factor for %s", ind)
	return f
}

func TestPipelineScenarios(t *testing.T) {
	pl := newPipeline(t, Fase0Profile())

	t.Run("execution within healthy band", func(t *testing.T) {
		set := healthySet()
		set.ExecutionRatio = float64Ptr(0.97)
		assert.Equal(t, 1.0, scoreFactor(t, pl.Score(set), IndicatorBudgetExecution).Score)
	})

	t.Run("execution above 120 percent", func(t *testing.T) {
		set := healthySet()
		set.ExecutionRatio = float64Ptr(1.30)
		assert.Equal(t, 0.5, scoreFactor(t, pl.Score(set), IndicatorBudgetExecution).Score)
	})

	t.Run("negative carryover", func(t *testing.T) {
		set := healthySet()
		set.CarryoverRatio = float64Ptr(-0.02)
		r := pl.Score(set)
		f := scoreFactor(t, r, IndicatorCarryover)

		require.NotNil(t, f.Resolved)
		assert.Equal(t, 0.0, *f.Resolved)
		assert.Equal(t, 1.0, f.Score)
		assert.True(t, r.SuspectData)
		assert.True(t, HasFlag(r.Flags, FlagSuspectData, IndicatorCarryover))
	})

	t.Run("three of five years reported", func(t *testing.T) {
		set := healthySet()
		set.YearsReported = intPtr(3)
		assert.InDelta(t, 0.6, scoreFactor(t, pl.Score(set), IndicatorReportingQuality).Score, eps)
	})

	t.Run("grave pendency with perfect indicators", func(t *testing.T) {
		set := healthySet()
		set.Blockage = &BlockageRecord{Pendencies: []string{"Regularidade Fiscal (RFB)"}}
		r := pl.Score(set)
		f := scoreFactor(t, r, IndicatorFederalBlockage)

		assert.Equal(t, 0.0, f.Contribution)
		assert.True(t, f.Overridden)
		require.NotNil(t, r.Score)
		assert.InDelta(t, 75.0, *r.Score, eps)
		assert.Equal(t, TierLowRisk, r.Tier)
		assert.True(t, HasFlag(r.Flags, FlagGravePendency, IndicatorFederalBlockage))
	})

	t.Run("no primary source", func(t *testing.T) {
		set := healthySet()
		set.ExecutionRatio = nil
		set.Blockage = &BlockageRecord{Pendencies: []string{"CADIN"}}
		set.CashBalanceRatio = float64Ptr(0.5)

		r := pl.Score(set)

		assert.False(t, r.Computable)
		assert.Nil(t, r.Score)
		assert.Equal(t, TierNoData, r.Tier)
		assert.Equal(t, NoDataLabel, r.TierLabel)
		assert.Empty(t, r.Factors)
		assert.NotEmpty(t, r.NotComputableReason)
		assert.True(t, HasFlag(r.Flags, FlagNotComputable, ""))
		assert.Equal(t, []Stage{StageIngested, StageNotComputable, StageEmitted}, r.Trail)
	})
}

func TestPipelineTrail(t *testing.T) {
	r := newPipeline(t, Fase0Profile()).Score(healthySet())
	assert.Equal(t, []Stage{StageIngested, StageResolved, StageScored, StageClassified, StageEmitted}, r.Trail)
	assert.Equal(t, ProfileFase0, r.ProfileVersion)
	assert.Equal(t, 100.0, r.Ceiling)
	assert.Empty(t, r.Pending)
}

func TestPipelineSurfacesCeilingAndPending(t *testing.T) {
	r := newPipeline(t, Fase1Profile()).Score(healthySet())

	assert.Equal(t, 75.0, r.Ceiling)
	assert.Equal(t, 100.0, r.MaxScore)
	require.Len(t, r.Pending, 2)
	assert.Equal(t, "datajud", r.Pending[0].Name)
	assert.True(t, HasFlag(r.Flags, FlagPendingIndicators, ""))
	require.NotNil(t, r.Score)
	assert.LessOrEqual(t, *r.Score, r.Ceiling)
}

func TestPipelineIdempotent(t *testing.T) {
	sets := []IndicatorSet{healthySet()}
	messy := healthySet()
	messy.CarryoverRatio = nil
	messy.CarryoverMedian = float64Ptr(0.021)
	messy.CashBalanceRatio = float64Ptr(-0.9)
	messy.Blockage = nil
	sets = append(sets, messy, IndicatorSet{Municipality: Municipality{Code: "0000000"}})

	for _, p := range BuiltinProfiles() {
		pl := newPipeline(t, p)
		for _, set := range sets {
			a, err := json.Marshal(pl.Score(set))
			require.NoError(t, err)
			b, err := json.Marshal(newPipeline(t, p).Score(set))
			require.NoError(t, err)
			assert.True(t, bytes.Equal(a, b), "%s/%s not byte-identical", p.Version, set.Municipality.Code)
		}
	}
}

func TestPipelineNotComputableRegardlessOfOtherFields(t *testing.T) {
	pl := newPipeline(t, Fase1Profile())
	variants := []IndicatorSet{
		{},
		{CarryoverRatio: float64Ptr(0), YearsReported: intPtr(5)},
		{Blockage: &BlockageRecord{}, CashBalanceRatio: float64Ptr(1), TaxAutonomyRatio: float64Ptr(1)},
		{Municipality: Municipality{Population: 5000}, Blockage: &BlockageRecord{Pendencies: []string{"CADIN"}}},
	}
	for i, set := range variants {
		r := pl.Score(set)
		assert.False(t, r.Computable, "variant %d", i)
		assert.Equal(t, TierNoData, r.Tier, "variant %d", i)
	}
}

func TestNewPipelineRejectsInvalidProfile(t *testing.T) {
	p := Fase0Profile()
	p.Indicators[0].Weight = 50

	pl, err := NewPipeline(p, discardLogger())
	assert.Nil(t, pl)
	assert.True(t, errors.Is(err, ErrInvalidProfile))
}

func TestPipelineProfileIsCopy(t *testing.T) {
	p := Fase0Profile()
	pl := newPipeline(t, p)

	p.Indicators[0].Weight = 0
	got := pl.Profile()
	got.Indicators[1].Weight = 0

	assert.Equal(t, 31.0, pl.Profile().Indicators[0].Weight)
	assert.Equal(t, 25.0, pl.Profile().Indicators[1].Weight)
}
