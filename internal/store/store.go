package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one scoring run: a batch of municipalities scored under a single profile version.
type Run struct {
	ID             uuid.UUID `json:"run_id"`
	ProfileVersion string    `json:"profile_version"`
	Period         string    `json:"period,omitempty"`
	Source         string    `json:"source,omitempty"`
	Status         RunStatus `json:"status"`

	// Tallies
	Total         int `json:"total"`
	Computable    int `json:"computable"`
	NotComputable int `json:"not_computable"`
	Suspect       int `json:"suspect"`

	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Tally fills the run counters from results.
func (r *Run) Tally(results []scoring.ScoreResult) {
	r.Total = len(results)
	r.Computable, r.NotComputable, r.Suspect = 0, 0, 0
	for _, res := range results {
		if res.Computable {
			r.Computable++
		} else {
			r.NotComputable++
		}
		if res.SuspectData {
			r.Suspect++
		}
	}
}

// ResultRecord is a persisted ScoreResult. Result holds the full record; the other fields are
// indexed copies.
type ResultRecord struct {
	ID               uuid.UUID           `json:"id"`
	RunID            uuid.UUID           `json:"run_id"`
	MunicipalityCode string              `json:"municipality_code"`
	ProfileVersion   string              `json:"profile_version"`
	Period           string              `json:"period,omitempty"`
	Score            *float64            `json:"score"`
	Tier             scoring.Tier        `json:"tier"`
	Computable       bool                `json:"computable"`
	SuspectData      bool                `json:"suspect_data"`
	Result           scoring.ScoreResult `json:"result"`
	CreatedAt        time.Time           `json:"created_at"`
}

type RunFilter struct {
	Status         *RunStatus
	ProfileVersion string
	Limit          int
	Offset         int
}

type ResultFilter struct {
	Tier       *scoring.Tier
	Computable *bool
	Limit      int
	Offset     int
}

type TierCount struct {
	Tier  scoring.Tier `json:"tier"`
	Count int          `json:"count"`
}

type Store interface {
	// Runs
	CreateRun(ctx context.Context, run *Run) error
	CompleteRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)

	// Results
	SaveResults(ctx context.Context, runID uuid.UUID, results []scoring.ScoreResult) error
	ListResults(ctx context.Context, runID uuid.UUID, filter ResultFilter) ([]*ResultRecord, error)
	GetResult(ctx context.Context, runID uuid.UUID, municipalityCode string) (*ResultRecord, error)
	GetLatestResult(ctx context.Context, municipalityCode, profileVersion string) (*ResultRecord, error)
	GetTierDistribution(ctx context.Context, runID uuid.UUID) ([]TierCount, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
