// seed_indicators.go parses a flat indicator CSV and submits it as one scoring run.
//
// Usage:
//
//	go run scripts/seed_indicators.go -csv indicators.csv -api http://localhost:8700 -token $SOLVENCY_ADMIN_TOKEN
//
// Columns: code,name,state,population,execution,carryover,years_reported,pendencies,cash_balance,tax_autonomy
// Empty cells are absent values; pendencies are ';'-separated, "-" means no pendency.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
)

type runRequest struct {
	ProfileVersion string                 `json:"profile_version,omitempty"`
	Period         string                 `json:"period,omitempty"`
	Source         string                 `json:"source"`
	Sets           []scoring.IndicatorSet `json:"sets"`
}

func main() {
	csvPath := flag.String("csv", "indicators.csv", "path to the indicator CSV")
	apiURL := flag.String("api", "http://localhost:8700", "Solvency API base URL")
	token := flag.String("token", "", "admin token")
	profile := flag.String("profile", "", "profile version (default profile when empty)")
	period := flag.String("period", "", "fiscal period")
	dryRun := flag.Bool("dry-run", false, "print sets without posting")
	flag.Parse()

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 10
	header := true
	var sets []scoring.IndicatorSet
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("read csv: %v", err)
		}
		if header {
			header = false
			continue
		}
		set, err := parseRow(rec)
		if err != nil {
			log.Printf("skip %s: %v", rec[0], err)
			continue
		}
		set.Period = *period
		sets = append(sets, set)
	}

	log.Printf("parsed %d municipalities from %s", len(sets), *csvPath)

	if *dryRun {
		for i, s := range sets {
			fmt.Printf("[%d] %s %s (primary=%v)\n", i+1, s.Municipality.Code, s.Municipality.Name, s.HasPrimarySource())
		}
		return
	}

	body, _ := json.Marshal(runRequest{
		ProfileVersion: *profile,
		Period:         *period,
		Source:         "seed",
		Sets:           sets,
	})
	req, err := http.NewRequest("POST", *apiURL+"/api/v1/runs", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if *token != "" {
		req.Header.Set("Authorization", "Bearer "+*token)
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("post run: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("post run: status %d: %s", resp.StatusCode, out)
	}
	log.Printf("run created: %s", out)
}

func parseRow(rec []string) (scoring.IndicatorSet, error) {
	set := scoring.IndicatorSet{
		Municipality: scoring.Municipality{
			Code:  strings.TrimSpace(rec[0]),
			Name:  strings.TrimSpace(rec[1]),
			State: strings.TrimSpace(rec[2]),
		},
	}
	if set.Municipality.Code == "" {
		return set, fmt.Errorf("missing code")
	}
	if v := strings.TrimSpace(rec[3]); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return set, fmt.Errorf("population: %w", err)
		}
		set.Municipality.Population = n
	}

	var err error
	if set.ExecutionRatio, err = optFloat(rec[4]); err != nil {
		return set, fmt.Errorf("execution: %w", err)
	}
	if set.CarryoverRatio, err = optFloat(rec[5]); err != nil {
		return set, fmt.Errorf("carryover: %w", err)
	}
	if v := strings.TrimSpace(rec[6]); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return set, fmt.Errorf("years_reported: %w", err)
		}
		set.YearsReported = &n
	}
	switch v := strings.TrimSpace(rec[7]); v {
	case "":
	case "-":
		set.Blockage = &scoring.BlockageRecord{Pendencies: []string{}}
	default:
		var pendencies []string
		for _, p := range strings.Split(v, ";") {
			if p = strings.TrimSpace(p); p != "" {
				pendencies = append(pendencies, p)
			}
		}
		set.Blockage = &scoring.BlockageRecord{Pendencies: pendencies}
	}
	if set.CashBalanceRatio, err = optFloat(rec[8]); err != nil {
		return set, fmt.Errorf("cash_balance: %w", err)
	}
	if set.TaxAutonomyRatio, err = optFloat(rec[9]); err != nil {
		return set, fmt.Errorf("tax_autonomy: %w", err)
	}
	return set, nil
}

func optFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
