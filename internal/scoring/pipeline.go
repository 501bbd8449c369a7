package scoring

import (
	"fmt"
	"log/slog"
	"strings"
)

// Stage is one state of the per-municipality scoring state machine.
type Stage string

const (
	StageIngested      Stage = "ingested"
	StageResolved      Stage = "resolved"
	StageScored        Stage = "scored"
	StageClassified    Stage = "classified"
	StageNotComputable Stage = "not_computable"
	StageEmitted       Stage = "emitted"
)

// ScoreResult is the emitted record for one municipality under one profile version.
// Not-computable results have a nil Score and no factor breakdown.
type ScoreResult struct {
	Municipality        Municipality       `json:"municipality"`
	Period              string             `json:"period,omitempty"`
	ProfileVersion      string             `json:"profile_version"`
	Computable          bool               `json:"computable"`
	Score               *float64           `json:"score"`
	NotComputableReason string             `json:"not_computable_reason,omitempty"`
	Tier                Tier               `json:"tier"`
	TierLabel           string             `json:"tier_label"`
	Factors             []FactorResult     `json:"factors"`
	Flags               []Flag             `json:"flags"`
	SuspectData         bool               `json:"suspect_data"`
	Ceiling             float64            `json:"ceiling"`
	MaxScore            float64            `json:"max_score"`
	Pending             []PendingIndicator `json:"pending"`
	Trail               []Stage            `json:"trail"`
}

// Factor returns the breakdown entry for ind.
func (r ScoreResult) Factor(ind Indicator) (FactorResult, bool) {
	for _, f := range r.Factors {
		if f.Indicator == ind {
			return f, true
		}
	}
	return FactorResult{}, false
}

// Pipeline scores IndicatorSets under one bound profile. It holds no mutable state and is
// safe for concurrent use.
type Pipeline struct {
	profile ScoringProfile
	logger  *slog.Logger
}

// NewPipeline validates profile and binds it. A malformed profile returns a *ConfigurationError.
func NewPipeline(profile ScoringProfile, logger *slog.Logger) (*Pipeline, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		profile: profile.Clone(),
		logger:  logger.With("profile", profile.Version),
	}, nil
}

// Profile returns a copy of the bound profile.
func (p *Pipeline) Profile() ScoringProfile {
	return p.profile.Clone()
}

// Score runs one IndicatorSet through resolve, aggregate and classify.
func (p *Pipeline) Score(set IndicatorSet) ScoreResult {
	result := ScoreResult{
		Municipality:   set.Municipality,
		Period:         set.Period,
		ProfileVersion: p.profile.Version,
		Ceiling:        p.profile.Ceiling,
		MaxScore:       p.profile.MaxScore,
		Pending:        append([]PendingIndicator{}, p.profile.Pending...),
		Factors:        []FactorResult{},
		Trail:          []Stage{StageIngested},
	}

	resolved := Resolve(set, p.profile)
	flags := append([]Flag(nil), resolved.Flags...)
	if len(p.profile.Pending) > 0 {
		flags = append(flags, Flag{Code: FlagPendingIndicators, Detail: p.pendingDetail()})
	}

	agg, ok := Aggregate(resolved, p.profile)
	if !ok {
		p.logger.Debug("primary source absent, score not computable", "municipality", set.Municipality.Code)
		result.Trail = append(result.Trail, StageNotComputable)
		result.NotComputableReason = "primary fiscal source (SICONFI) absent"
		result.finish(Classify(nil, p.profile.Bands), flags)
		return result
	}
	result.Trail = append(result.Trail, StageResolved, StageScored)

	score := agg.Score
	result.Computable = true
	result.Score = &score
	result.Factors = agg.Factors
	for _, f := range agg.Factors {
		if f.Overridden {
			p.logger.Debug("punitive override applied", "municipality", set.Municipality.Code, "indicator", f.Indicator)
		}
	}

	result.Trail = append(result.Trail, StageClassified)
	result.finish(Classify(result.Score, p.profile.Bands), flags)
	return result
}

func (r *ScoreResult) finish(c Classification, flags []Flag) {
	r.Tier = c.Tier
	r.TierLabel = c.Label
	r.Flags = sortFlags(flags)
	r.SuspectData = HasFlag(r.Flags, FlagSuspectData, "")
	r.Trail = append(r.Trail, StageEmitted)
}

func (p *Pipeline) pendingDetail() string {
	names := make([]string, 0, len(p.profile.Pending))
	for _, pi := range p.profile.Pending {
		names = append(names, pi.Name)
	}
	return fmt.Sprintf("ceiling %.2f of %.2f; pending %s", p.profile.Ceiling, p.profile.MaxScore, strings.Join(names, ","))
}
