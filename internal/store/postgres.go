package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
)

//go:embed sql/*
var schemaFS embed.FS

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Migrate applies the embedded schema. Statements are idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ddl, err := schemaFS.ReadFile("sql/schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := s.pool.Exec(ctx, string(ddl)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const runColumns = `run_id, profile_version, period, source, status,
	total, computable, not_computable, suspect,
	error, started_at, completed_at`

func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	if run.Status == "" {
		run.Status = RunRunning
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO scoring_runs (profile_version, period, source, status)
		VALUES ($1, $2, $3, $4)
		RETURNING run_id, started_at`,
		run.ProfileVersion, run.Period, run.Source, run.Status,
	).Scan(&run.ID, &run.StartedAt)
}

// CompleteRun records the final status and tallies. completed_at is set by the database.
func (s *PostgresStore) CompleteRun(ctx context.Context, run *Run) error {
	var runError *string
	if run.Error != "" {
		runError = &run.Error
	}
	return s.pool.QueryRow(ctx, `
		UPDATE scoring_runs SET
			status = $2, total = $3, computable = $4, not_computable = $5, suspect = $6,
			error = $7, completed_at = now()
		WHERE run_id = $1
		RETURNING completed_at`,
		run.ID, run.Status, run.Total, run.Computable, run.NotComputable, run.Suspect, runError,
	).Scan(&run.CompletedAt)
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+runColumns+` FROM scoring_runs WHERE run_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	runs, err := scanRuns(rows)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM scoring_runs WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	if filter.ProfileVersion != "" {
		n++
		query += fmt.Sprintf(" AND profile_version = $%d", n)
		args = append(args, filter.ProfileVersion)
	}

	query += " ORDER BY started_at DESC"
	query, args = paginate(query, args, n, filter.Limit, filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

// SaveResults inserts every result of a run in one transaction. Results are never updated;
// re-scoring creates a new run.
func (s *PostgresStore) SaveResults(ctx context.Context, runID uuid.UUID, results []scoring.ScoreResult) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, r := range results {
		resultJSON, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode result %s: %w", r.Municipality.Code, err)
		}
		batch.Queue(`
			INSERT INTO score_results (run_id, municipality_code, profile_version, period,
				score, tier, computable, suspect_data, result)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			runID, r.Municipality.Code, r.ProfileVersion, r.Period,
			r.Score, string(r.Tier), r.Computable, r.SuspectData, resultJSON,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for _, r := range results {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert result %s: %w", r.Municipality.Code, err)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const resultColumns = `id, run_id, municipality_code, profile_version, period,
	score, tier, computable, suspect_data, result, created_at`

func (s *PostgresStore) ListResults(ctx context.Context, runID uuid.UUID, filter ResultFilter) ([]*ResultRecord, error) {
	query := `SELECT ` + resultColumns + ` FROM score_results WHERE run_id = $1`
	args := []interface{}{runID}
	n := 1

	if filter.Tier != nil {
		n++
		query += fmt.Sprintf(" AND tier = $%d", n)
		args = append(args, string(*filter.Tier))
	}
	if filter.Computable != nil {
		n++
		query += fmt.Sprintf(" AND computable = $%d", n)
		args = append(args, *filter.Computable)
	}

	// Reference export order: best score first, not computable last.
	query += " ORDER BY score DESC NULLS LAST, municipality_code ASC"
	query, args = paginate(query, args, n, filter.Limit, filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResults(rows)
}

func (s *PostgresStore) GetResult(ctx context.Context, runID uuid.UUID, municipalityCode string) (*ResultRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+resultColumns+`
		FROM score_results WHERE run_id = $1 AND municipality_code = $2`, runID, municipalityCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return firstResult(rows)
}

func (s *PostgresStore) GetLatestResult(ctx context.Context, municipalityCode, profileVersion string) (*ResultRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+resultColumns+`
		FROM score_results WHERE municipality_code = $1 AND profile_version = $2
		ORDER BY created_at DESC LIMIT 1`, municipalityCode, profileVersion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return firstResult(rows)
}

func (s *PostgresStore) GetTierDistribution(ctx context.Context, runID uuid.UUID) ([]TierCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tier, COUNT(*) FROM score_results
		WHERE run_id = $1
		GROUP BY tier ORDER BY tier`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TierCount
	for rows.Next() {
		var tc TierCount
		if err := rows.Scan(&tc.Tier, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func paginate(query string, args []interface{}, n, limit, offset int) (string, []interface{}) {
	if limit <= 0 {
		limit = 100
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, offset)
	}
	return query, args
}

func scanRuns(rows pgx.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		r := &Run{}
		var runError sql.NullString
		if err := rows.Scan(
			&r.ID, &r.ProfileVersion, &r.Period, &r.Source, &r.Status,
			&r.Total, &r.Computable, &r.NotComputable, &r.Suspect,
			&runError, &r.StartedAt, &r.CompletedAt,
		); err != nil {
			return nil, err
		}
		if runError.Valid {
			r.Error = runError.String
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func scanResults(rows pgx.Rows) ([]*ResultRecord, error) {
	var records []*ResultRecord
	for rows.Next() {
		rec := &ResultRecord{}
		var resultJSON []byte
		if err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.MunicipalityCode, &rec.ProfileVersion, &rec.Period,
			&rec.Score, &rec.Tier, &rec.Computable, &rec.SuspectData, &resultJSON, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		if resultJSON != nil {
			if err := json.Unmarshal(resultJSON, &rec.Result); err != nil {
				return nil, fmt.Errorf("decode result %s: %w", rec.MunicipalityCode, err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func firstResult(rows pgx.Rows) (*ResultRecord, error) {
	records, err := scanResults(rows)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}
