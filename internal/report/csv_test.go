package report

import (
	"bytes"
	"encoding/csv"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
)

func f64(v float64) *float64 { return &v }
func i64(v int) *int         { return &v }

func score(t *testing.T, p scoring.ScoringProfile, sets ...scoring.IndicatorSet) []scoring.ScoreResult {
	t.Helper()
	pl, err := scoring.NewPipeline(p, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	out := make([]scoring.ScoreResult, len(sets))
	for i, s := range sets {
		out[i] = pl.Score(s)
	}
	return out
}

func set(code string, execution *float64, pendencies ...string) scoring.IndicatorSet {
	return scoring.IndicatorSet{
		Municipality:   scoring.Municipality{Code: code, Name: "Município " + code, State: "BA", Population: 12_000},
		Period:         "2024",
		ExecutionRatio: execution,
		CarryoverRatio: f64(0.01),
		YearsReported:  i64(4),
		Blockage:       &scoring.BlockageRecord{Pendencies: append([]string{}, pendencies...)},
	}
}

func column(t *testing.T, name string) int {
	t.Helper()
	for i, c := range Header() {
		if c == name {
			return i
		}
	}
	t.Fatalf("no column %s", name)
	return -1
}

func TestHeader(t *testing.T) {
	h := Header()
	assert.Equal(t, "municipality_code", h[0])
	assert.Equal(t, len(baseColumns)+4*len(scoring.AllIndicators())+3, len(h))
	assert.Equal(t, "eorcam_raw", h[len(baseColumns)])
	assert.Equal(t, "pending", h[len(h)-1])
}

func TestRowComputable(t *testing.T) {
	r := score(t, scoring.Fase0Profile(), set("2927408", f64(0.95)))[0]
	row := Row(r)
	require.Len(t, row, len(Header()))

	assert.Equal(t, "2927408", row[column(t, "municipality_code")])
	assert.Equal(t, "true", row[column(t, "computable")])
	assert.Equal(t, "0.95", row[column(t, "eorcam_raw")])
	assert.Equal(t, "31", row[column(t, "eorcam_contrib")])
	assert.Empty(t, row[column(t, "scaixa_raw")], "fase0 does not score cash balance")
	assert.Empty(t, row[column(t, "reason")])
}

func TestRowNotComputable(t *testing.T) {
	r := score(t, scoring.Fase1Profile(), set("2900108", nil))[0]
	row := Row(r)

	assert.Empty(t, row[column(t, "score")])
	assert.Equal(t, "false", row[column(t, "computable")])
	assert.Equal(t, string(scoring.TierNoData), row[column(t, "tier")])
	assert.NotEmpty(t, row[column(t, "reason")])
	assert.Empty(t, row[column(t, "eorcam_score")], "no breakdown without the primary source")
	assert.Contains(t, row[column(t, "pending")], ";", "fase1 carries two pending indicators")
}

func TestSortForExport(t *testing.T) {
	results := score(t, scoring.Fase0Profile(),
		set("3", nil),
		set("2", f64(0.95), "CADIN"),
		set("1", f64(0.95)),
		set("0", nil),
	)

	sorted := SortForExport(results)
	codes := make([]string, len(sorted))
	for i, r := range sorted {
		codes[i] = r.Municipality.Code
	}
	assert.Equal(t, []string{"1", "2", "0", "3"}, codes)
	assert.Equal(t, "3", results[0].Municipality.Code, "input is not reordered")
}

func TestWriteCSV(t *testing.T) {
	results := score(t, scoring.Fase0Profile(), set("1", f64(0.95)), set("2", nil))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, results))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Header(), records[0])
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "2", records[2][0])
}
