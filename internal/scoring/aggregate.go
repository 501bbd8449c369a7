package scoring

// FactorResult captures one indicator's contribution to the total score.
type FactorResult struct {
	Indicator    Indicator `json:"indicator"`
	Raw          *float64  `json:"raw"`
	Resolved     *float64  `json:"resolved"`
	Outcome      Outcome   `json:"outcome"`
	Score        float64   `json:"score"`
	Weight       float64   `json:"weight"`
	Contribution float64   `json:"contribution"`
	Overridden   bool      `json:"overridden"`
	Available    bool      `json:"available"`
	Reason       string    `json:"reason"`
}

// Aggregation is the aggregator output for a computable set.
type Aggregation struct {
	Score   float64        `json:"score"`
	Factors []FactorResult `json:"factors"`
}

// Aggregate combines the resolved values into the weighted score under p. It reports false
// when the primary source is missing; no partial score is produced in that case.
//
//	goodness: contribution = weight × curve(value)
//	risk:     contribution = weight × (1 − curve(value))
//
// The punitive override runs afterwards over the contribution vector.
func Aggregate(r ResolvedIndicatorSet, p ScoringProfile) (Aggregation, bool) {
	if !r.PrimarySource {
		return Aggregation{}, false
	}

	factors := make([]FactorResult, 0, len(p.Indicators))
	for _, spec := range p.Indicators {
		v, ok := r.Value(spec.Indicator)
		if !ok {
			v = forcedZero(spec.Indicator, "not resolved")
		}
		factors = append(factors, contribution(spec, v, r.Bracket, p.Curves))
	}

	applyPunitiveOverride(factors, r, p.Override)

	var total float64
	for _, f := range factors {
		total += f.Contribution
	}
	return Aggregation{Score: clamp(total, 0, p.Ceiling), Factors: factors}, true
}

func contribution(spec IndicatorSpec, v ResolvedValue, bracket PopulationBracket, params CurveParams) FactorResult {
	f := FactorResult{
		Indicator: spec.Indicator,
		Raw:       v.Raw,
		Outcome:   v.Outcome,
		Weight:    spec.Weight,
		Reason:    string(v.Outcome),
	}
	if !v.Usable() {
		f.Reason = "source absent, contribution forced to 0"
		return f
	}

	curve, ok := LookupCurve(spec.Curve)
	if !ok {
		f.Reason = "unknown curve " + spec.Curve
		return f
	}

	f.Resolved = float64Ptr(v.Value)
	f.Available = true
	f.Score = curve(CurveInput{Value: v.Value, Bracket: bracket}, params)
	if spec.Form == FormRisk {
		f.Contribution = spec.Weight * (1 - f.Score)
	} else {
		f.Contribution = spec.Weight * f.Score
	}
	if len(v.Flags) > 0 && v.Flags[0].Detail != "" {
		f.Reason = string(v.Outcome) + ": " + v.Flags[0].Detail
	}
	return f
}

// applyPunitiveOverride zeroes the override indicator's contribution when its resolved value was
// classified grave. Only that indicator is touched.
func applyPunitiveOverride(factors []FactorResult, r ResolvedIndicatorSet, rule OverrideRule) {
	if !rule.Enabled {
		return
	}
	v, ok := r.Value(rule.Indicator)
	if !ok || !v.Grave {
		return
	}
	for i := range factors {
		if factors[i].Indicator != rule.Indicator {
			continue
		}
		factors[i].Contribution = 0
		factors[i].Overridden = true
		factors[i].Reason = "grave pendency, contribution forced to 0"
	}
}
