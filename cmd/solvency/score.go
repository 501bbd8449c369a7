package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/MikeSquared-Agency/Solvency/internal/collector"
	"github.com/MikeSquared-Agency/Solvency/internal/config"
	"github.com/MikeSquared-Agency/Solvency/internal/events"
	"github.com/MikeSquared-Agency/Solvency/internal/report"
	"github.com/MikeSquared-Agency/Solvency/internal/runner"
	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
)

var (
	inputFlag = &cli.StringFlag{
		Name:  "input",
		Usage: "JSON file with indicator sets, a list or a batch object (- reads stdin)",
	}

	sourceURLFlag = &cli.StringFlag{
		Name:  "source-url",
		Usage: "Collector base URL to fetch indicator sets from instead of --input",
	}

	periodFlag = &cli.StringFlag{
		Name:  "period",
		Usage: "Fiscal period to fetch from the collector",
	}

	profileFlag = &cli.StringFlag{
		Name:  "profile",
		Usage: "Profile version (optional, defaults to the configured default profile)",
	}

	outputFlag = &cli.StringFlag{
		Name:  "output",
		Usage: "Output file (optional, defaults to stdout)",
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format: csv or json",
		Value: "csv",
	}

	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "Concurrent scoring workers (optional, defaults to the configured value)",
	}

	scoreCmd = &cli.Command{
		Name:   "score",
		Usage:  "Score a batch offline and write the results",
		Action: cmdScore,
		Flags: []cli.Flag{
			inputFlag,
			sourceURLFlag,
			periodFlag,
			profileFlag,
			outputFlag,
			formatFlag,
			workersFlag,
		},
	}
)

func cmdScore(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if n := cmd.Int(workersFlag.Name); n > 0 {
		cfg.Scoring.Workers = n
	}
	format := cmd.String(formatFlag.Name)
	if format != "csv" && format != "json" {
		return fmt.Errorf("unsupported format %q", format)
	}
	logger := newLogger(cfg.Logging, os.Stderr)

	registry, err := config.BuildRegistry(cfg)
	if err != nil {
		return fmt.Errorf("build profile registry: %w", err)
	}

	req := runner.Request{
		ProfileVersion: cmd.String(profileFlag.Name),
		Period:         cmd.String(periodFlag.Name),
	}
	switch input, url := cmd.String(inputFlag.Name), cmd.String(sourceURLFlag.Name); {
	case input != "" && url != "":
		return errors.New("--input and --source-url are mutually exclusive")
	case input != "":
		batch, err := readBatch(input)
		if err != nil {
			return err
		}
		req.Sets = batch.Sets
		req.Source = input
		if req.Period == "" {
			req.Period = batch.Period
		}
		if req.ProfileVersion == "" {
			req.ProfileVersion = batch.ProfileVersion
		}
	case url != "":
		c := collector.NewHTTPClient(url, cfg.Collector.Token, cfg.CollectorTimeout())
		if req.Sets, err = c.FetchIndicators(ctx, req.Period); err != nil {
			return fmt.Errorf("fetch indicators: %w", err)
		}
		if req.CarryoverMedian, err = c.FetchCarryoverMedian(ctx, req.Period); err != nil {
			return fmt.Errorf("fetch carryover median: %w", err)
		}
		req.Source = url
	default:
		return errors.New("one of --input or --source-url is required")
	}

	rn := runner.New(nil, nil, nil, registry, nil, cfg, logger)
	_, results, err := rn.Run(ctx, req)
	if err != nil {
		return err
	}

	return writeOutput(cmd.String(outputFlag.Name), format, results)
}

// writeOutput writes to stdout when path is empty or "-". A failed close is reported, since the
// file may be truncated.
func writeOutput(path, format string, results []scoring.ScoreResult) (err error) {
	if path == "" || path == "-" {
		return writeResults(os.Stdout, format, results)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()
	return writeResults(f, format, results)
}

// readBatch accepts either a JSON list of indicator sets or an indicator batch object.
func readBatch(path string) (events.IndicatorBatchEvent, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return events.IndicatorBatchEvent{}, fmt.Errorf("read input: %w", err)
	}

	var batch events.IndicatorBatchEvent
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &batch.Sets)
	} else {
		err = json.Unmarshal(trimmed, &batch)
	}
	if err != nil {
		return events.IndicatorBatchEvent{}, fmt.Errorf("decode input %s: %w", path, err)
	}
	return batch, nil
}

func writeResults(w io.Writer, format string, results []scoring.ScoreResult) error {
	sorted := report.SortForExport(results)
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sorted)
	}
	return report.WriteCSV(w, sorted)
}
