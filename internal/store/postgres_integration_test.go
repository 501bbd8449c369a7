//go:build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
)

func setupTestDB(t *testing.T) *PostgresStore {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, "TRUNCATE score_results CASCADE")
		_, _ = s.pool.Exec(ctx, "TRUNCATE scoring_runs CASCADE")
		s.Close()
	})

	return s
}

func scoredResults(t *testing.T) []scoring.ScoreResult {
	t.Helper()
	p, err := scoring.NewPipeline(scoring.Fase0Profile(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ratio := func(v float64) *float64 { return &v }
	years := 5
	sets := []scoring.IndicatorSet{
		{Municipality: scoring.Municipality{Code: "1100015", Name: "Alta Floresta D'Oeste", Population: 22_000},
			ExecutionRatio: ratio(0.97), CarryoverRatio: ratio(0), YearsReported: &years,
			Blockage: &scoring.BlockageRecord{}},
		{Municipality: scoring.Municipality{Code: "1100023", Name: "Ariquemes", Population: 96_000},
			ExecutionRatio: ratio(0.75), CarryoverRatio: ratio(-0.01), YearsReported: &years},
		{Municipality: scoring.Municipality{Code: "1100031", Name: "Cabixi", Population: 5_000}},
	}
	out := make([]scoring.ScoreResult, len(sets))
	for i, s := range sets {
		out[i] = p.Score(s)
	}
	return out
}

func TestRunLifecycle(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	run := &Run{ProfileVersion: scoring.ProfileFase0, Period: "2024", Source: "integration-test"}
	if err := s.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if run.ID == uuid.Nil {
		t.Fatal("expected run ID after create")
	}
	if run.Status != RunRunning {
		t.Errorf("expected running status, got %s", run.Status)
	}

	results := scoredResults(t)
	if err := s.SaveResults(ctx, run.ID, results); err != nil {
		t.Fatalf("SaveResults failed: %v", err)
	}

	run.Tally(results)
	run.Status = RunCompleted
	if err := s.CompleteRun(ctx, run); err != nil {
		t.Fatalf("CompleteRun failed: %v", err)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected run, got nil")
	}
	if got.Status != RunCompleted || got.Total != 3 || got.NotComputable != 1 || got.Suspect != 1 {
		t.Errorf("unexpected run: %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at")
	}

	missing, err := s.GetRun(ctx, uuid.New())
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for unknown run, got %v, %v", missing, err)
	}
}

func TestResultsQueries(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	run := &Run{ProfileVersion: scoring.ProfileFase0}
	if err := s.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := s.SaveResults(ctx, run.ID, scoredResults(t)); err != nil {
		t.Fatalf("SaveResults failed: %v", err)
	}

	all, err := s.ListResults(ctx, run.ID, ResultFilter{})
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 results, got %d", len(all))
	}
	if all[0].MunicipalityCode != "1100015" || all[2].Score != nil {
		t.Errorf("expected best score first and not computable last, got %s ... %v", all[0].MunicipalityCode, all[2].Score)
	}
	if all[0].Result.ProfileVersion != scoring.ProfileFase0 || len(all[0].Result.Factors) != 4 {
		t.Errorf("result JSON not round-tripped: %+v", all[0].Result)
	}

	noData := scoring.TierNoData
	filtered, err := s.ListResults(ctx, run.ID, ResultFilter{Tier: &noData})
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Computable {
		t.Errorf("expected one no-data result, got %d", len(filtered))
	}

	one, err := s.GetResult(ctx, run.ID, "1100023")
	if err != nil || one == nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if !one.SuspectData {
		t.Error("expected suspect data on negative carryover")
	}

	latest, err := s.GetLatestResult(ctx, "1100015", scoring.ProfileFase0)
	if err != nil || latest == nil {
		t.Fatalf("GetLatestResult failed: %v", err)
	}
	if latest.RunID != run.ID {
		t.Errorf("expected latest from run %s, got %s", run.ID, latest.RunID)
	}

	dist, err := s.GetTierDistribution(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetTierDistribution failed: %v", err)
	}
	var total int
	for _, tc := range dist {
		total += tc.Count
	}
	if total != 3 {
		t.Errorf("expected distribution over 3 results, got %d", total)
	}
}

func TestSaveResultsRejectsDuplicateMunicipality(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	run := &Run{ProfileVersion: scoring.ProfileFase0}
	if err := s.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	results := scoredResults(t)
	if err := s.SaveResults(ctx, run.ID, append(results, results[0])); err == nil {
		t.Fatal("expected error for duplicate municipality in a run")
	}
	all, err := s.ListResults(ctx, run.ID, ResultFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("expected rollback, found %d rows", len(all))
	}
}
