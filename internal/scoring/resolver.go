package scoring

import (
	"fmt"
	"math"
	"time"
)

// Outcome records how the resolver produced a value.
type Outcome string

const (
	OutcomeReported      Outcome = "reported"
	OutcomeClamped       Outcome = "clamped"
	OutcomeSubstituted   Outcome = "substituted"
	OutcomeWorstCase     Outcome = "worst_case"
	OutcomeForcedZero    Outcome = "forced_zero"
	OutcomeNotComputable Outcome = "not_computable"
)

// ResolvedValue is one indicator after the missing-data and anomaly policy.
// Value is meaningful only when Usable reports true.
type ResolvedValue struct {
	Indicator Indicator `json:"indicator"`
	Outcome   Outcome   `json:"outcome"`
	Raw       *float64  `json:"raw,omitempty"`
	Value     float64   `json:"value"`
	Grave     bool      `json:"grave,omitempty"`
	Flags     []Flag    `json:"flags,omitempty"`
}

// Usable reports whether Value should go through the indicator's curve.
func (v ResolvedValue) Usable() bool {
	return v.Outcome != OutcomeForcedZero && v.Outcome != OutcomeNotComputable
}

// ResolvedIndicatorSet is an IndicatorSet with every profile indicator resolved.
type ResolvedIndicatorSet struct {
	Municipality  Municipality      `json:"municipality"`
	Period        string            `json:"period,omitempty"`
	Bracket       PopulationBracket `json:"bracket"`
	PrimarySource bool              `json:"primary_source"`
	Values        []ResolvedValue   `json:"values"`
	Flags         []Flag            `json:"flags"`
}

// Value returns the resolved value for ind.
func (r ResolvedIndicatorSet) Value(ind Indicator) (ResolvedValue, bool) {
	for _, v := range r.Values {
		if v.Indicator == ind {
			return v, true
		}
	}
	return ResolvedValue{}, false
}

// Resolve applies the missing-data and anomaly policy of p to set. The output holds one
// value per profile indicator, in profile order. When the primary source is absent every
// value is marked not computable.
func Resolve(set IndicatorSet, p ScoringProfile) ResolvedIndicatorSet {
	out := ResolvedIndicatorSet{
		Municipality:  set.Municipality,
		Period:        set.Period,
		Bracket:       BracketFor(set.Municipality.Population),
		PrimarySource: set.HasPrimarySource(),
		Values:        make([]ResolvedValue, 0, len(p.Indicators)),
	}

	var flags []Flag
	if !out.PrimarySource {
		for _, spec := range p.Indicators {
			out.Values = append(out.Values, ResolvedValue{Indicator: spec.Indicator, Outcome: OutcomeNotComputable})
		}
		flags = append(flags,
			Flag{Code: FlagNotComputable, Detail: "primary fiscal source absent"},
			Flag{Code: FlagMissingSource, Indicator: PrimaryIndicator, Detail: "siconfi"},
		)
		out.Flags = sortFlags(flags)
		return out
	}

	for _, spec := range p.Indicators {
		v := resolveIndicator(spec.Indicator, set, p, out.Bracket)
		flags = append(flags, v.Flags...)
		out.Values = append(out.Values, v)
	}
	out.Flags = sortFlags(flags)
	return out
}

func resolveIndicator(ind Indicator, set IndicatorSet, p ScoringProfile, bracket PopulationBracket) ResolvedValue {
	switch ind {
	case IndicatorBudgetExecution:
		return resolveExecution(set)
	case IndicatorCarryover:
		return resolveCarryover(set)
	case IndicatorReportingQuality:
		return resolveReporting(set, p.Curves.ReportingWindow)
	case IndicatorFederalBlockage:
		return resolveBlockage(set, p)
	case IndicatorCashBalance:
		return resolveCashBalance(set)
	case IndicatorTaxAutonomy:
		return resolveTaxAutonomy(set, bracket)
	default:
		return ResolvedValue{Indicator: ind, Outcome: OutcomeForcedZero,
			Flags: []Flag{{Code: FlagMissingSource, Indicator: ind, Detail: "indicator not supported"}}}
	}
}

func resolveExecution(set IndicatorSet) ResolvedValue {
	raw := *set.ExecutionRatio
	v := ResolvedValue{Indicator: IndicatorBudgetExecution, Outcome: OutcomeReported, Raw: float64Ptr(raw), Value: raw}
	if raw < 0 {
		v.Value = 0
		v.Outcome = OutcomeClamped
		v.Flags = append(v.Flags, suspect(IndicatorBudgetExecution, "negative execution ratio clamped to 0"))
	}
	return v
}

func resolveCarryover(set IndicatorSet) ResolvedValue {
	ind := IndicatorCarryover
	if !present(set.CarryoverRatio) {
		if present(set.CarryoverMedian) {
			median := math.Max(*set.CarryoverMedian, 0)
			return ResolvedValue{
				Indicator: ind,
				Outcome:   OutcomeSubstituted,
				Value:     median,
				Flags: []Flag{{Code: FlagSubstitutedMedian, Indicator: ind,
					Detail: fmt.Sprintf("period median %.4f", median)}},
			}
		}
		return forcedZero(ind, "carryover and period median both absent")
	}

	raw := *set.CarryoverRatio
	v := ResolvedValue{Indicator: ind, Outcome: OutcomeReported, Raw: float64Ptr(raw), Value: raw}
	if raw < 0 {
		v.Value = 0
		v.Outcome = OutcomeClamped
		v.Flags = append(v.Flags, suspect(ind, "negative carryover clamped to 0"))
	}
	return v
}

func resolveReporting(set IndicatorSet, window int) ResolvedValue {
	ind := IndicatorReportingQuality
	if window < 1 {
		window = 1
	}
	if set.YearsReported == nil {
		return ResolvedValue{
			Indicator: ind,
			Outcome:   OutcomeWorstCase,
			Value:     0,
			Flags:     []Flag{{Code: FlagMissingSource, Indicator: ind, Detail: "reporting history absent"}},
		}
	}

	years := *set.YearsReported
	v := ResolvedValue{Indicator: ind, Outcome: OutcomeReported, Raw: float64Ptr(float64(years))}
	if years < 0 || years > window {
		clamped := int(clamp(float64(years), 0, float64(window)))
		v.Outcome = OutcomeClamped
		v.Flags = append(v.Flags, suspect(ind, fmt.Sprintf("years reported %d outside [0,%d]", years, window)))
		years = clamped
	}
	v.Value = float64(years) / float64(window)
	return v
}

func resolveBlockage(set IndicatorSet, p ScoringProfile) ResolvedValue {
	ind := IndicatorFederalBlockage
	if set.Blockage == nil {
		return ResolvedValue{
			Indicator: ind,
			Outcome:   OutcomeWorstCase,
			Value:     1,
			Grave:     true,
			Flags: []Flag{
				{Code: FlagMissingSource, Indicator: ind, Detail: "no CAUC record, treated as grave"},
				{Code: FlagGravePendency, Indicator: ind, Detail: "conservative default"},
			},
		}
	}

	severity, grave := BlockageSeverity(set.Blockage.Pendencies, p.Pendencies)
	v := ResolvedValue{
		Indicator: ind,
		Outcome:   OutcomeReported,
		Raw:       float64Ptr(float64(len(set.Blockage.Pendencies))),
		Value:     severity,
		Grave:     grave,
	}
	if grave {
		v.Flags = append(v.Flags, Flag{Code: FlagGravePendency, Indicator: ind})
	}
	if isStale(set.Blockage.SurveyDate, set.ReferenceDate, p.MaxSnapshotAgeDays) {
		age := int(set.ReferenceDate.Sub(set.Blockage.SurveyDate).Hours() / 24)
		v.Flags = append(v.Flags, Flag{Code: FlagStaleSnapshot, Indicator: ind,
			Detail: fmt.Sprintf("survey is %d days old", age)})
	}
	return v
}

func resolveCashBalance(set IndicatorSet) ResolvedValue {
	ind := IndicatorCashBalance
	if !present(set.CashBalanceRatio) {
		return forcedZero(ind, "DCA cash balance absent")
	}
	raw := *set.CashBalanceRatio
	v := ResolvedValue{Indicator: ind, Outcome: OutcomeReported, Raw: float64Ptr(raw), Value: raw}
	if raw <= cashCap {
		v.Value = cashCap
		v.Outcome = OutcomeClamped
		v.Flags = append(v.Flags, suspect(ind, "cash balance at or below -0.50, probable pension fund distortion"))
	}
	return v
}

func resolveTaxAutonomy(set IndicatorSet, bracket PopulationBracket) ResolvedValue {
	ind := IndicatorTaxAutonomy
	if !present(set.TaxAutonomyRatio) {
		return forcedZero(ind, "DCA tax revenue absent")
	}
	if bracket == BracketUnknown {
		return forcedZero(ind, "population unknown, no calibration bracket")
	}
	raw := *set.TaxAutonomyRatio
	v := ResolvedValue{Indicator: ind, Outcome: OutcomeReported, Raw: float64Ptr(raw), Value: raw}
	if raw < 0 || raw > 1 {
		v.Value = clamp(raw, 0, 1)
		v.Outcome = OutcomeClamped
		v.Flags = append(v.Flags, suspect(ind, "tax autonomy outside [0,1]"))
	}
	return v
}

func forcedZero(ind Indicator, detail string) ResolvedValue {
	return ResolvedValue{
		Indicator: ind,
		Outcome:   OutcomeForcedZero,
		Flags:     []Flag{{Code: FlagMissingSource, Indicator: ind, Detail: detail}},
	}
}

func suspect(ind Indicator, detail string) Flag {
	return Flag{Code: FlagSuspectData, Indicator: ind, Detail: detail}
}

func isStale(survey, reference time.Time, maxAgeDays int) bool {
	if maxAgeDays <= 0 || survey.IsZero() || reference.IsZero() {
		return false
	}
	return reference.Sub(survey) > time.Duration(maxAgeDays)*24*time.Hour
}
