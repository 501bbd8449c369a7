package scoring

import (
	"math"
	"strings"
)

// Curve names referenced by profiles.
const (
	CurveBudgetExecution  = "budget_execution"
	CurveCarryover        = "carryover"
	CurveReportingQuality = "reporting_quality"
	CurveBlockageSeverity = "blockage_severity"
	CurveCashBalance      = "cash_balance"
	CurveTaxAutonomy      = "tax_autonomy"
)

// Segment boundaries of the reference methodology. Ratios, not percentages.
const (
	executionFloor      = 0.70
	executionHealthyMin = 0.90
	executionHealthyMax = 1.05
	executionExcessCap  = 1.20
	executionExcessCeil = 0.5

	carryoverKneeRatio = 0.03
	carryoverCritical  = 0.10

	cashExcellent = 0.20
	cashFair      = 0.10
	cashFairScore = 0.75
	cashNeutral   = 0.50
	cashCap       = -0.50

	blockageModeratePoints = 2.0
	blockageLightPoints    = 1.0
	blockagePointsScale    = 20.0
	blockageModerateCap    = 0.5
)

// CurveInput is what a curve receives after resolution.
type CurveInput struct {
	Value   float64
	Bracket PopulationBracket
}

// Curve maps a resolved value to a sub-score in [0,1] using the profile's calibration data.
type Curve func(in CurveInput, params CurveParams) float64

var curveRegistry = map[string]Curve{
	CurveBudgetExecution: func(in CurveInput, _ CurveParams) float64 {
		return BudgetExecutionScore(in.Value)
	},
	CurveCarryover: func(in CurveInput, p CurveParams) float64 {
		return CarryoverScore(in.Value, p.CarryoverKnee)
	},
	CurveReportingQuality: func(in CurveInput, _ CurveParams) float64 {
		return ReportingQualityScore(in.Value)
	},
	CurveBlockageSeverity: func(in CurveInput, _ CurveParams) float64 {
		return clamp01(in.Value)
	},
	CurveCashBalance: func(in CurveInput, _ CurveParams) float64 {
		return CashBalanceScore(in.Value)
	},
	CurveTaxAutonomy: func(in CurveInput, p CurveParams) float64 {
		sp, ok := p.Sigmoid[in.Bracket]
		if !ok {
			return 0
		}
		return TaxAutonomyScore(in.Value, sp)
	},
}

// LookupCurve returns the curve registered under name.
func LookupCurve(name string) (Curve, bool) {
	c, ok := curveRegistry[name]
	return c, ok
}

// BudgetExecutionScore scores the realized/planned revenue ratio.
//
//	[0.90, 1.05] → 1.0
//	(1.05, 1.20] → linear 1.0 → 0.5
//	> 1.20       → 0.5
//	[0.70, 0.90) → linear 0.0 → 1.0
//	< 0.70       → 0.0
func BudgetExecutionScore(ratio float64) float64 {
	switch {
	case math.IsNaN(ratio):
		return 0
	case ratio >= executionHealthyMin && ratio <= executionHealthyMax:
		return 1
	case ratio > executionExcessCap:
		return executionExcessCeil
	case ratio > executionHealthyMax:
		span := executionExcessCap - executionHealthyMax
		return clamp01(1 - (ratio-executionHealthyMax)/span*(1-executionExcessCeil))
	case ratio >= executionFloor:
		return clamp01((ratio - executionFloor) / (executionHealthyMin - executionFloor))
	default:
		return 0
	}
}

// CarryoverScore scores unprocessed carryover over realized revenue. knee is the score at 3%.
// Below 3% the decay is linear from 1.0; from 3% to 10% it is the quadratic
// knee·((0.10 − x)/0.07)², which meets knee at 3% and 0 at 10%.
func CarryoverScore(ratio, knee float64) float64 {
	switch {
	case math.IsNaN(ratio):
		return 0
	case ratio <= 0:
		return 1
	case ratio >= carryoverCritical:
		return 0
	case ratio <= carryoverKneeRatio:
		return clamp01(1 - (ratio/carryoverKneeRatio)*(1-knee))
	default:
		d := (carryoverCritical - ratio) / (carryoverCritical - carryoverKneeRatio)
		return clamp01(knee * d * d)
	}
}

// ReportingQualityScore scores the share of the reporting window with a delivered report.
func ReportingQualityScore(share float64) float64 {
	return clamp01(share)
}

// CashBalanceScore scores (financial assets − financial liabilities) / current revenue.
// Negative balances decay quadratically from 0.50 at zero to 0 at −0.50.
func CashBalanceScore(ratio float64) float64 {
	switch {
	case math.IsNaN(ratio):
		return 0
	case ratio >= cashExcellent:
		return 1
	case ratio >= cashFair:
		return cashFairScore
	case ratio >= 0:
		return clamp01(cashNeutral + (ratio/cashFair)*(cashFairScore-cashNeutral))
	case ratio <= cashCap:
		return 0
	default:
		d := 1 - ratio/cashCap
		return clamp01(cashNeutral * d * d)
	}
}

// TaxAutonomyScore scores own tax revenue over current revenue with a logistic curve.
func TaxAutonomyScore(ratio float64, p SigmoidParams) float64 {
	if math.IsNaN(ratio) {
		return 0
	}
	return clamp01(1 / (1 + math.Exp(-p.Steepness*(ratio-p.Midpoint))))
}

// BlockageSeverity classifies CAUC pendencies. A single grave pendency yields 1.0 and grave=true.
// Otherwise moderate pendencies weigh 2 points and any other pendency 1 point, over 20, capped at 0.5.
func BlockageSeverity(pendencies []string, classes PendencyClasses) (severity float64, grave bool) {
	if len(pendencies) == 0 {
		return 0, false
	}
	graveSet := nameSet(classes.Grave)
	moderateSet := nameSet(classes.Moderate)

	var points float64
	for _, p := range pendencies {
		key := normalizePendency(p)
		if key == "" || key == "regular" {
			continue
		}
		if graveSet[key] {
			return 1, true
		}
		if moderateSet[key] {
			points += blockageModeratePoints
		} else {
			points += blockageLightPoints
		}
	}
	return math.Min(points/blockagePointsScale, blockageModerateCap), false
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[normalizePendency(n)] = true
	}
	return set
}

func normalizePendency(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// clamp01 also maps NaN to 0 so no curve can leak NaN.
func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, 0, 1)
}
