package events

import (
	"time"

	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
)

// IndicatorBatchEvent asks for one scoring run over fully materialized indicator sets.
// An empty ProfileVersion selects the default profile.
type IndicatorBatchEvent struct {
	ProfileVersion string                 `json:"profile_version,omitempty"`
	Period         string                 `json:"period,omitempty"`
	Source         string                 `json:"source,omitempty"`
	Sets           []scoring.IndicatorSet `json:"sets"`
}

type RunStartedEvent struct {
	RunID          string `json:"run_id"`
	ProfileVersion string `json:"profile_version"`
	Period         string `json:"period,omitempty"`
	Municipalities int    `json:"municipalities"`
}

type RunCompletedEvent struct {
	RunID          string               `json:"run_id"`
	ProfileVersion string               `json:"profile_version"`
	Total          int                  `json:"total"`
	Computable     int                  `json:"computable"`
	NotComputable  int                  `json:"not_computable"`
	Suspect        int                  `json:"suspect"`
	Tiers          map[scoring.Tier]int `json:"tiers"`
	DurationMs     int64                `json:"duration_ms"`
	Timestamp      time.Time            `json:"timestamp"`
}

type RunFailedEvent struct {
	RunID          string `json:"run_id"`
	ProfileVersion string `json:"profile_version"`
	Error          string `json:"error"`
}

// ScoreEmittedEvent wraps one result with the run that produced it.
type ScoreEmittedEvent struct {
	RunID  string              `json:"run_id"`
	Result scoring.ScoreResult `json:"result"`
}
