package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aggregate(t *testing.T, set IndicatorSet, p ScoringProfile) Aggregation {
	t.Helper()
	agg, ok := Aggregate(Resolve(set, p), p)
	require.True(t, ok, "expected computable aggregation")
	return agg
}

func factor(t *testing.T, agg Aggregation, ind Indicator) FactorResult {
	t.Helper()
	for _, f := range agg.Factors {
		if f.Indicator == ind {
			return f
		}
	}
	t.Fatalf("no factor for %s", ind)
	return FactorResult{}
}

func TestAggregatePerfectMunicipality(t *testing.T) {
	agg := aggregate(t, healthySet(), Fase0Profile())
	assert.InDelta(t, 100.0, agg.Score, eps)

	agg = aggregate(t, healthySet(), Fase1Profile())
	assert.InDelta(t, 75.0, agg.Score, 1e-6)
}

func TestAggregateGravePendency(t *testing.T) {
	set := healthySet()
	set.Blockage = &BlockageRecord{Pendencies: []string{"CADIN"}}

	agg := aggregate(t, set, Fase0Profile())
	f := factor(t, agg, IndicatorFederalBlockage)

	assert.Equal(t, 0.0, f.Contribution)
	assert.True(t, f.Overridden)
	assert.InDelta(t, 31.0+25.0+19.0, agg.Score, eps)
}

func TestAggregateModerateBlockage(t *testing.T) {
	set := healthySet()
	set.Blockage = &BlockageRecord{Pendencies: []string{"Regularidade FGTS", "SIOPS (Saúde)", "Outro"}}

	agg := aggregate(t, set, Fase0Profile())
	f := factor(t, agg, IndicatorFederalBlockage)

	assert.False(t, f.Overridden)
	assert.InDelta(t, 25*(1-0.25), f.Contribution, eps)
}

func TestAggregateForcedZeroContributions(t *testing.T) {
	set := healthySet()
	set.CashBalanceRatio = nil
	set.TaxAutonomyRatio = nil

	agg := aggregate(t, set, Fase1Profile())
	for _, ind := range []Indicator{IndicatorCashBalance, IndicatorTaxAutonomy} {
		f := factor(t, agg, ind)
		assert.Equal(t, 0.0, f.Contribution, ind)
		assert.False(t, f.Available, ind)
		assert.Nil(t, f.Resolved, ind)
	}
	assert.InDelta(t, 45.0, agg.Score, eps)
}

func TestAggregateOverrideProperty(t *testing.T) {
	variants := []func(*IndicatorSet){
		func(s *IndicatorSet) {},
		func(s *IndicatorSet) { s.ExecutionRatio = float64Ptr(0.5) },
		func(s *IndicatorSet) { s.CarryoverRatio = float64Ptr(0.2) },
		func(s *IndicatorSet) { s.YearsReported = intPtr(0) },
		func(s *IndicatorSet) { s.CashBalanceRatio = float64Ptr(-3) },
		func(s *IndicatorSet) { s.TaxAutonomyRatio = nil },
		func(s *IndicatorSet) { s.Municipality.Population = 0 },
	}
	pendencies := [][]string{
		{"CADIN"},
		{"Regularidade PGFN", "Regularidade FGTS"},
		{"SIOPS (Saúde)", "Adimplência CGU", "outro"},
	}

	for _, p := range BuiltinProfiles() {
		for i, mutate := range variants {
			for _, pend := range pendencies {
				set := healthySet()
				set.Blockage = &BlockageRecord{Pendencies: pend}
				mutate(&set)

				agg := aggregate(t, set, p)
				f := factor(t, agg, IndicatorFederalBlockage)
				if f.Contribution != 0 || !f.Overridden {
					t.Errorf("%s variant %d %v: blockage contribution %v overridden=%v", p.Version, i, pend, f.Contribution, f.Overridden)
				}

				var sum float64
				for _, fr := range agg.Factors {
					sum += fr.Contribution
				}
				assert.InDelta(t, sum, agg.Score, eps)
				assert.GreaterOrEqual(t, agg.Score, 0.0)
				assert.LessOrEqual(t, agg.Score, p.Ceiling)
			}
		}
	}
}

func TestAggregateOverrideDisabled(t *testing.T) {
	p := Fase0Profile()
	p.Override.Enabled = false
	set := healthySet()
	set.Blockage = &BlockageRecord{Pendencies: []string{"CADIN"}}

	f := factor(t, aggregate(t, set, p), IndicatorFederalBlockage)
	assert.False(t, f.Overridden)
	assert.Equal(t, 0.0, f.Contribution)
}

func TestAggregateWithoutPrimarySource(t *testing.T) {
	set := healthySet()
	set.ExecutionRatio = nil
	p := Fase0Profile()

	agg, ok := Aggregate(Resolve(set, p), p)
	assert.False(t, ok)
	assert.Empty(t, agg.Factors)
}
