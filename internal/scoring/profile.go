package scoring

import (
	"fmt"
	"math"
	"time"
)

const weightTolerance = 0.001

// Form tells the aggregator how a curve output becomes a contribution.
type Form string

const (
	// FormGoodness contributes weight × score.
	FormGoodness Form = "goodness"
	// FormRisk contributes weight × (1 − score).
	FormRisk Form = "risk"
)

// IndicatorSpec binds one indicator to its weight and curve within a profile.
type IndicatorSpec struct {
	Indicator Indicator `yaml:"indicator" json:"indicator"`
	Weight    float64   `yaml:"weight" json:"weight"`
	Curve     string    `yaml:"curve" json:"curve"`
	Form      Form      `yaml:"form" json:"form"`
}

// OverrideRule is the punitive override: a grave classification zeroes that indicator's contribution.
type OverrideRule struct {
	Enabled   bool      `yaml:"enabled" json:"enabled"`
	Indicator Indicator `yaml:"indicator" json:"indicator"`
}

// Band is one classification tier. A band covers [Min, next band's Min); the last band
// extends to MaxScore inclusive.
type Band struct {
	Tier  Tier    `yaml:"tier" json:"tier"`
	Label string  `yaml:"label" json:"label"`
	Min   float64 `yaml:"min" json:"min"`
}

// PendingIndicator is an indicator a later methodology phase will integrate.
// Its weight is excluded from the achievable ceiling.
type PendingIndicator struct {
	Name        string  `yaml:"name" json:"name"`
	Weight      float64 `yaml:"weight" json:"weight"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
}

// SigmoidParams calibrate the tax-autonomy logistic curve for one population bracket.
type SigmoidParams struct {
	Midpoint  float64 `yaml:"midpoint" json:"midpoint"`
	Steepness float64 `yaml:"steepness" json:"steepness"`
}

// CurveParams holds the calibration data curves read from the profile.
type CurveParams struct {
	CarryoverKnee   float64                             `yaml:"carryover_knee" json:"carryover_knee"`
	ReportingWindow int                                 `yaml:"reporting_window" json:"reporting_window"`
	Sigmoid         map[PopulationBracket]SigmoidParams `yaml:"sigmoid" json:"sigmoid"`
}

// PendencyClasses lists CAUC pendency names by severity. Names in neither list count as light.
type PendencyClasses struct {
	Grave    []string `yaml:"grave" json:"grave"`
	Moderate []string `yaml:"moderate" json:"moderate"`
}

// ScoringProfile is one published, immutable methodology version.
type ScoringProfile struct {
	Version            string             `yaml:"version" json:"version"`
	Description        string             `yaml:"description,omitempty" json:"description,omitempty"`
	PublishedAt        time.Time          `yaml:"published_at,omitempty" json:"published_at,omitempty"`
	MaxScore           float64            `yaml:"max_score" json:"max_score"`
	Ceiling            float64            `yaml:"ceiling" json:"ceiling"`
	Indicators         []IndicatorSpec    `yaml:"indicators" json:"indicators"`
	Override           OverrideRule       `yaml:"override" json:"override"`
	Bands              []Band             `yaml:"bands" json:"bands"`
	Pending            []PendingIndicator `yaml:"pending,omitempty" json:"pending,omitempty"`
	Curves             CurveParams        `yaml:"curves" json:"curves"`
	Pendencies         PendencyClasses    `yaml:"pendencies" json:"pendencies"`
	MaxSnapshotAgeDays int                `yaml:"max_snapshot_age_days,omitempty" json:"max_snapshot_age_days,omitempty"`
}

// Spec returns the profile entry for ind.
func (p ScoringProfile) Spec(ind Indicator) (IndicatorSpec, bool) {
	for _, s := range p.Indicators {
		if s.Indicator == ind {
			return s, true
		}
	}
	return IndicatorSpec{}, false
}

// WeightSum returns the total of the active indicator weights, summed in profile order.
func (p ScoringProfile) WeightSum() float64 {
	var sum float64
	for _, s := range p.Indicators {
		sum += s.Weight
	}
	return sum
}

// PendingWeight returns the weight reserved for indicators not yet integrated.
func (p ScoringProfile) PendingWeight() float64 {
	var sum float64
	for _, pi := range p.Pending {
		sum += pi.Weight
	}
	return sum
}

// Validate checks the profile and returns a *ConfigurationError listing every problem found.
func (p ScoringProfile) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if p.Version == "" {
		add("version is required")
	}
	if !finite(p.MaxScore) || p.MaxScore <= 0 || p.MaxScore > 100 {
		add("max_score %.4f must be in (0, 100]", p.MaxScore)
	}
	if !finite(p.Ceiling) || p.Ceiling <= 0 || p.Ceiling > p.MaxScore {
		add("ceiling %.4f must be in (0, max_score]", p.Ceiling)
	}

	seen := make(map[Indicator]bool)
	for _, s := range p.Indicators {
		if !s.Indicator.Known() {
			add("unknown indicator %q", s.Indicator)
		}
		if seen[s.Indicator] {
			add("duplicate indicator %q", s.Indicator)
		}
		seen[s.Indicator] = true
		if !finite(s.Weight) || s.Weight < 0 {
			add("invalid weight %.4f for %s", s.Weight, s.Indicator)
		}
		if _, ok := curveRegistry[s.Curve]; !ok {
			add("unknown curve %q for %s", s.Curve, s.Indicator)
		}
		if s.Form != FormGoodness && s.Form != FormRisk {
			add("invalid form %q for %s", s.Form, s.Indicator)
		}
	}
	if !seen[PrimaryIndicator] {
		add("primary indicator %s is required", PrimaryIndicator)
	}
	if sum := p.WeightSum(); math.Abs(sum-p.Ceiling) > weightTolerance {
		add("weights sum to %.4f, ceiling is %.4f", sum, p.Ceiling)
	}
	for _, pi := range p.Pending {
		if pi.Name == "" {
			add("pending indicator without name")
		}
		if !finite(pi.Weight) || pi.Weight < 0 {
			add("invalid pending weight %.4f for %s", pi.Weight, pi.Name)
		}
	}
	if total := p.Ceiling + p.PendingWeight(); math.Abs(total-p.MaxScore) > weightTolerance {
		add("ceiling plus pending weights is %.4f, max_score is %.4f", total, p.MaxScore)
	}

	if p.Override.Enabled {
		spec, ok := p.Spec(p.Override.Indicator)
		switch {
		case !ok:
			add("override indicator %q is not in the profile", p.Override.Indicator)
		case spec.Form != FormRisk:
			add("override indicator %s must have form %q", spec.Indicator, FormRisk)
		}
	}

	if seen[IndicatorCarryover] && (!finite(p.Curves.CarryoverKnee) || p.Curves.CarryoverKnee <= 0 || p.Curves.CarryoverKnee > 1) {
		add("carryover_knee %.4f must be in (0, 1]", p.Curves.CarryoverKnee)
	}
	if seen[IndicatorReportingQuality] && p.Curves.ReportingWindow < 1 {
		add("reporting_window %d must be at least 1", p.Curves.ReportingWindow)
	}
	if seen[IndicatorTaxAutonomy] {
		for _, b := range Brackets() {
			sp, ok := p.Curves.Sigmoid[b]
			if !ok {
				add("missing sigmoid parameters for bracket %s", b)
				continue
			}
			if !finite(sp.Steepness) || sp.Steepness <= 0 || !finite(sp.Midpoint) {
				add("sigmoid parameters for bracket %s out of domain", b)
			}
		}
	}
	if p.MaxSnapshotAgeDays < 0 {
		add("max_snapshot_age_days must not be negative")
	}

	problems = append(problems, validateBands(p.Bands, p.MaxScore)...)

	if len(problems) > 0 {
		return &ConfigurationError{Version: p.Version, Problems: problems}
	}
	return nil
}

func validateBands(bands []Band, maxScore float64) []string {
	if len(bands) == 0 {
		return []string{"at least one classification band is required"}
	}
	var problems []string
	if bands[0].Min != 0 {
		problems = append(problems, fmt.Sprintf("first band %s must start at 0, starts at %.4f", bands[0].Tier, bands[0].Min))
	}
	tiers := make(map[Tier]bool)
	for i, b := range bands {
		if b.Tier == "" || b.Tier == TierNoData {
			problems = append(problems, fmt.Sprintf("band %d has reserved or empty tier %q", i, b.Tier))
		}
		if tiers[b.Tier] {
			problems = append(problems, fmt.Sprintf("duplicate band tier %q", b.Tier))
		}
		tiers[b.Tier] = true
		if !finite(b.Min) {
			problems = append(problems, fmt.Sprintf("band %s has non-finite min", b.Tier))
			continue
		}
		if b.Min >= maxScore {
			problems = append(problems, fmt.Sprintf("band %s starts at %.4f, at or above max_score", b.Tier, b.Min))
		}
		if i > 0 && !(b.Min > bands[i-1].Min) {
			problems = append(problems, fmt.Sprintf("band %s overlaps %s", b.Tier, bands[i-1].Tier))
		}
	}
	return problems
}

// finite rejects NaN and ±Inf, which pass every ordered comparison check.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clone returns a deep copy so callers cannot mutate a published profile.
func (p ScoringProfile) Clone() ScoringProfile {
	c := p
	c.Indicators = append([]IndicatorSpec(nil), p.Indicators...)
	c.Bands = append([]Band(nil), p.Bands...)
	c.Pending = append([]PendingIndicator(nil), p.Pending...)
	c.Pendencies.Grave = append([]string(nil), p.Pendencies.Grave...)
	c.Pendencies.Moderate = append([]string(nil), p.Pendencies.Moderate...)
	if p.Curves.Sigmoid != nil {
		c.Curves.Sigmoid = make(map[PopulationBracket]SigmoidParams, len(p.Curves.Sigmoid))
		for k, v := range p.Curves.Sigmoid {
			c.Curves.Sigmoid[k] = v
		}
	}
	return c
}
