package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

// healthySet is a municipality with every source present and nothing to flag.
func healthySet() IndicatorSet {
	return IndicatorSet{
		Municipality:     Municipality{Code: "3550308", Name: "São Paulo", State: "SP", Population: 11_451_245},
		Period:           "2024",
		ExecutionRatio:   float64Ptr(0.97),
		CarryoverRatio:   float64Ptr(0),
		YearsReported:    intPtr(5),
		Blockage:         &BlockageRecord{Pendencies: []string{}},
		CashBalanceRatio: float64Ptr(0.30),
		TaxAutonomyRatio: float64Ptr(0.40),
	}
}

func mustValue(t *testing.T, r ResolvedIndicatorSet, ind Indicator) ResolvedValue {
	t.Helper()
	v, ok := r.Value(ind)
	require.True(t, ok, "indicator %s not resolved", ind)
	return v
}

func TestResolveNegativeCarryoverIsClampedAndSuspect(t *testing.T) {
	set := healthySet()
	set.CarryoverRatio = float64Ptr(-0.02)

	r := Resolve(set, Fase0Profile())
	v := mustValue(t, r, IndicatorCarryover)

	assert.Equal(t, OutcomeClamped, v.Outcome)
	assert.Equal(t, 0.0, v.Value)
	assert.Equal(t, -0.02, *v.Raw)
	assert.True(t, HasFlag(r.Flags, FlagSuspectData, IndicatorCarryover))
	assert.Equal(t, 1.0, CarryoverScore(v.Value, 0.70))
}

func TestResolveMissingCarryover(t *testing.T) {
	t.Run("median substituted", func(t *testing.T) {
		set := healthySet()
		set.CarryoverRatio = nil
		set.CarryoverMedian = float64Ptr(0.012)

		r := Resolve(set, Fase0Profile())
		v := mustValue(t, r, IndicatorCarryover)

		assert.Equal(t, OutcomeSubstituted, v.Outcome)
		assert.Equal(t, 0.012, v.Value)
		assert.Nil(t, v.Raw)
		assert.True(t, HasFlag(r.Flags, FlagSubstitutedMedian, IndicatorCarryover))
		assert.False(t, HasFlag(r.Flags, FlagSuspectData, ""))
	})

	t.Run("NaN treated as absent", func(t *testing.T) {
		set := healthySet()
		set.CarryoverRatio = float64Ptr(math.NaN())
		set.CarryoverMedian = float64Ptr(0.02)

		v := mustValue(t, Resolve(set, Fase0Profile()), IndicatorCarryover)
		assert.Equal(t, OutcomeSubstituted, v.Outcome)
	})

	t.Run("no median", func(t *testing.T) {
		set := healthySet()
		set.CarryoverRatio = nil

		r := Resolve(set, Fase0Profile())
		v := mustValue(t, r, IndicatorCarryover)

		assert.Equal(t, OutcomeForcedZero, v.Outcome)
		assert.False(t, v.Usable())
		assert.True(t, HasFlag(r.Flags, FlagMissingSource, IndicatorCarryover))
	})
}

func TestResolveBlockage(t *testing.T) {
	t.Run("absent record is worst case", func(t *testing.T) {
		set := healthySet()
		set.Blockage = nil

		r := Resolve(set, Fase0Profile())
		v := mustValue(t, r, IndicatorFederalBlockage)

		assert.Equal(t, OutcomeWorstCase, v.Outcome)
		assert.Equal(t, 1.0, v.Value)
		assert.True(t, v.Grave)
		assert.True(t, HasFlag(r.Flags, FlagMissingSource, IndicatorFederalBlockage))
	})

	t.Run("stale survey flagged", func(t *testing.T) {
		set := healthySet()
		set.ReferenceDate = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
		set.Blockage = &BlockageRecord{SurveyDate: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}

		r := Resolve(set, Fase0Profile())
		v := mustValue(t, r, IndicatorFederalBlockage)

		assert.Equal(t, OutcomeReported, v.Outcome)
		assert.True(t, HasFlag(r.Flags, FlagStaleSnapshot, IndicatorFederalBlockage))
	})

	t.Run("recent survey not flagged", func(t *testing.T) {
		set := healthySet()
		set.ReferenceDate = time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
		set.Blockage = &BlockageRecord{SurveyDate: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}

		r := Resolve(set, Fase0Profile())
		assert.False(t, HasFlag(r.Flags, FlagStaleSnapshot, ""))
	})
}

func TestResolveReportingWindow(t *testing.T) {
	set := healthySet()
	set.YearsReported = intPtr(7)

	r := Resolve(set, Fase0Profile())
	v := mustValue(t, r, IndicatorReportingQuality)
	assert.Equal(t, OutcomeClamped, v.Outcome)
	assert.Equal(t, 1.0, v.Value)
	assert.True(t, HasFlag(r.Flags, FlagSuspectData, IndicatorReportingQuality))

	set.YearsReported = nil
	v = mustValue(t, Resolve(set, Fase0Profile()), IndicatorReportingQuality)
	assert.Equal(t, OutcomeWorstCase, v.Outcome)
	assert.Equal(t, 0.0, v.Value)
}

func TestResolveDCASources(t *testing.T) {
	t.Run("absent sources force zero", func(t *testing.T) {
		set := healthySet()
		set.CashBalanceRatio = nil
		set.TaxAutonomyRatio = nil

		r := Resolve(set, Fase1Profile())
		for _, ind := range []Indicator{IndicatorCashBalance, IndicatorTaxAutonomy} {
			v := mustValue(t, r, ind)
			assert.Equal(t, OutcomeForcedZero, v.Outcome, ind)
			assert.True(t, HasFlag(r.Flags, FlagMissingSource, ind), ind)
		}
	})

	t.Run("cash balance capped", func(t *testing.T) {
		set := healthySet()
		set.CashBalanceRatio = float64Ptr(-0.83)

		r := Resolve(set, Fase1Profile())
		v := mustValue(t, r, IndicatorCashBalance)
		assert.Equal(t, OutcomeClamped, v.Outcome)
		assert.Equal(t, -0.5, v.Value)
		assert.True(t, HasFlag(r.Flags, FlagSuspectData, IndicatorCashBalance))
	})

	t.Run("unknown population has no calibration", func(t *testing.T) {
		set := healthySet()
		set.Municipality.Population = 0

		r := Resolve(set, Fase1Profile())
		v := mustValue(t, r, IndicatorTaxAutonomy)
		assert.Equal(t, OutcomeForcedZero, v.Outcome)
		assert.Equal(t, BracketUnknown, r.Bracket)
	})
}

func TestResolveWithoutPrimarySource(t *testing.T) {
	set := healthySet()
	set.ExecutionRatio = nil

	r := Resolve(set, Fase1Profile())

	assert.False(t, r.PrimarySource)
	require.Len(t, r.Values, len(Fase1Profile().Indicators))
	for _, v := range r.Values {
		assert.Equal(t, OutcomeNotComputable, v.Outcome, v.Indicator)
		assert.False(t, v.Usable())
	}
	assert.True(t, HasFlag(r.Flags, FlagNotComputable, ""))
}

func TestResolveIsTotal(t *testing.T) {
	sets := []IndicatorSet{
		healthySet(),
		{Municipality: Municipality{Code: "1"}, ExecutionRatio: float64Ptr(0.5)},
		{Municipality: Municipality{Code: "2"}, ExecutionRatio: float64Ptr(-1), CarryoverRatio: float64Ptr(math.Inf(1)),
			YearsReported: intPtr(-3), CashBalanceRatio: float64Ptr(math.Inf(-1)), TaxAutonomyRatio: float64Ptr(9)},
		{Municipality: Municipality{Code: "3"}},
	}
	for _, set := range sets {
		r := Resolve(set, Fase1Profile())
		require.Len(t, r.Values, 6)
		for _, v := range r.Values {
			if v.Usable() {
				assert.False(t, math.IsNaN(v.Value), "%s/%s resolved to NaN", set.Municipality.Code, v.Indicator)
			}
		}
	}
}
