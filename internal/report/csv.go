// Package report renders score results as flat rows for downstream mapping tools.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
)

var baseColumns = []string{
	"municipality_code", "municipality", "state", "population", "period",
	"profile_version", "score", "tier", "tier_label", "computable", "reason",
	"ceiling", "max_score",
}

// Header returns the column names, one group of four per canonical indicator.
func Header() []string {
	cols := append([]string{}, baseColumns...)
	for _, ind := range scoring.AllIndicators() {
		cols = append(cols,
			string(ind)+"_raw",
			string(ind)+"_resolved",
			string(ind)+"_score",
			string(ind)+"_contrib",
		)
	}
	return append(cols, "suspect_data", "flags", "pending")
}

// Row flattens one result. Indicators outside the result's profile stay empty.
func Row(r scoring.ScoreResult) []string {
	score := ""
	if r.Score != nil {
		score = strconv.FormatFloat(*r.Score, 'f', 1, 64)
	}
	row := []string{
		r.Municipality.Code,
		r.Municipality.Name,
		r.Municipality.State,
		strconv.Itoa(r.Municipality.Population),
		r.Period,
		r.ProfileVersion,
		score,
		string(r.Tier),
		r.TierLabel,
		strconv.FormatBool(r.Computable),
		r.NotComputableReason,
		formatFloat(r.Ceiling),
		formatFloat(r.MaxScore),
	}

	for _, ind := range scoring.AllIndicators() {
		f, ok := r.Factor(ind)
		if !ok {
			row = append(row, "", "", "", "")
			continue
		}
		row = append(row,
			formatPtr(f.Raw),
			formatPtr(f.Resolved),
			formatFloat(f.Score),
			formatFloat(f.Contribution),
		)
	}

	flags := make([]string, len(r.Flags))
	for i, f := range r.Flags {
		flags[i] = f.String()
	}
	pending := make([]string, len(r.Pending))
	for i, p := range r.Pending {
		pending[i] = p.Name
	}
	return append(row,
		strconv.FormatBool(r.SuspectData),
		strings.Join(flags, ";"),
		strings.Join(pending, ";"),
	)
}

// WriteCSV writes the header and one row per result, in the given order.
func WriteCSV(w io.Writer, results []scoring.ScoreResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		if err := cw.Write(Row(r)); err != nil {
			return fmt.Errorf("write row %s: %w", r.Municipality.Code, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SortForExport returns a copy ordered by score, highest first, with not-computable results
// last. Ties break on municipality code.
func SortForExport(results []scoring.ScoreResult) []scoring.ScoreResult {
	out := make([]scoring.ScoreResult, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.Score == nil) != (b.Score == nil) {
			return a.Score != nil
		}
		if a.Score != nil && *a.Score != *b.Score {
			return *a.Score > *b.Score
		}
		return a.Municipality.Code < b.Municipality.Code
	})
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
