package scoring

import (
	"math"
	"time"
)

// Indicator identifies one fiscal indicator family.
type Indicator string

const (
	IndicatorBudgetExecution  Indicator = "eorcam"
	IndicatorCarryover        Indicator = "rrestos"
	IndicatorReportingQuality Indicator = "qsiconfi"
	IndicatorFederalBlockage  Indicator = "ccauc"
	IndicatorCashBalance      Indicator = "scaixa"
	IndicatorTaxAutonomy      Indicator = "autonomia"
)

// PrimaryIndicator is backed by the SICONFI execution report. Without it no score is computed.
const PrimaryIndicator = IndicatorBudgetExecution

// AllIndicators returns every known indicator in canonical order.
func AllIndicators() []Indicator {
	return []Indicator{
		IndicatorBudgetExecution,
		IndicatorCarryover,
		IndicatorReportingQuality,
		IndicatorFederalBlockage,
		IndicatorCashBalance,
		IndicatorTaxAutonomy,
	}
}

// Known reports whether i is one of the indicators the engine can score.
func (i Indicator) Known() bool {
	for _, k := range AllIndicators() {
		if k == i {
			return true
		}
	}
	return false
}

// PopulationBracket groups municipalities by size for the tax-autonomy calibration.
type PopulationBracket string

const (
	BracketMicro   PopulationBracket = "micro"
	BracketSmall   PopulationBracket = "small"
	BracketMedium  PopulationBracket = "medium"
	BracketLarge   PopulationBracket = "large"
	BracketUnknown PopulationBracket = "unknown"
)

// Brackets returns the calibrated brackets, smallest first.
func Brackets() []PopulationBracket {
	return []PopulationBracket{BracketMicro, BracketSmall, BracketMedium, BracketLarge}
}

// BracketFor maps a population count to its bracket.
func BracketFor(population int) PopulationBracket {
	switch {
	case population <= 0:
		return BracketUnknown
	case population < 10_000:
		return BracketMicro
	case population < 50_000:
		return BracketSmall
	case population < 200_000:
		return BracketMedium
	default:
		return BracketLarge
	}
}

// Municipality identifies the scored entity.
type Municipality struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	State      string `json:"state,omitempty"`
	Population int    `json:"population"`
}

// BlockageRecord is the federal transfer-blockage registry (CAUC) situation of a municipality.
// An empty Pendencies list means the municipality is regular.
type BlockageRecord struct {
	Pendencies []string  `json:"pendencies"`
	SurveyDate time.Time `json:"survey_date,omitempty"`
}

// IndicatorSet holds the raw per-municipality indicators for one scoring run.
// Nil fields were not reported by their source.
type IndicatorSet struct {
	Municipality  Municipality `json:"municipality"`
	Period        string       `json:"period,omitempty"`
	ReferenceDate time.Time    `json:"reference_date,omitempty"`

	// SICONFI (primary source). ExecutionRatio presence marks the primary source as present.
	ExecutionRatio  *float64 `json:"execution_ratio,omitempty"`
	CarryoverRatio  *float64 `json:"carryover_ratio,omitempty"`
	CarryoverMedian *float64 `json:"carryover_median,omitempty"`
	YearsReported   *int     `json:"years_reported,omitempty"`

	// CAUC
	Blockage *BlockageRecord `json:"blockage,omitempty"`

	// DCA
	CashBalanceRatio *float64 `json:"cash_balance_ratio,omitempty"`
	TaxAutonomyRatio *float64 `json:"tax_autonomy_ratio,omitempty"`
}

// HasPrimarySource reports whether the SICONFI execution data is present.
func (s IndicatorSet) HasPrimarySource() bool {
	return present(s.ExecutionRatio)
}

// present treats NaN and ±Inf as not reported.
func present(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

func float64Ptr(v float64) *float64 { return &v }
