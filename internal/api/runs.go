package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Solvency/internal/report"
	"github.com/MikeSquared-Agency/Solvency/internal/runner"
	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
	"github.com/MikeSquared-Agency/Solvency/internal/store"
)

type RunsHandler struct {
	store  store.Store
	runner *runner.Runner
}

func NewRunsHandler(s store.Store, rn *runner.Runner) *RunsHandler {
	return &RunsHandler{store: s, runner: rn}
}

type CreateRunRequest struct {
	ProfileVersion  string                 `json:"profile_version,omitempty"`
	Period          string                 `json:"period,omitempty"`
	Source          string                 `json:"source,omitempty"`
	CarryoverMedian *float64               `json:"carryover_median,omitempty"`
	Sets            []scoring.IndicatorSet `json:"sets"`
}

// Create scores and persists a batch as a new run.
// POST /api/v1/runs
func (h *RunsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Sets) == 0 {
		writeError(w, http.StatusBadRequest, "sets required")
		return
	}
	if req.Source == "" {
		req.Source = "api"
	}

	run, _, err := h.runner.Run(r.Context(), runner.Request{
		ProfileVersion:  req.ProfileVersion,
		Period:          req.Period,
		Source:          req.Source,
		Sets:            req.Sets,
		CarryoverMedian: req.CarryoverMedian,
	})
	if errors.Is(err, scoring.ErrUnknownProfile) || errors.Is(err, runner.ErrDuplicateMunicipality) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// Refresh scores the collector's current sets for a period under the default profile.
// POST /api/v1/runs/refresh?period=
func (h *RunsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	run, err := h.runner.Refresh(r.Context(), r.URL.Query().Get("period"))
	if errors.Is(err, runner.ErrNoCollector) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// GET /api/v1/runs
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit")
	offset, ok2 := queryInt(r, "offset")
	if !ok || !ok2 {
		writeError(w, http.StatusBadRequest, "invalid limit or offset")
		return
	}
	filter := store.RunFilter{
		ProfileVersion: r.URL.Query().Get("profile"),
		Limit:          limit,
		Offset:         offset,
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := store.RunStatus(s)
		filter.Status = &status
	}

	runs, err := h.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *RunsHandler) loadRun(w http.ResponseWriter, r *http.Request, param string) *store.Run {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return nil
	}
	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return nil
	}
	return run
}

// GET /api/v1/runs/{id}
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	run := h.loadRun(w, r, "id")
	if run == nil {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// Results lists a run's results, best score first. format=csv exports every matching row.
// GET /api/v1/runs/{id}/results
func (h *RunsHandler) Results(w http.ResponseWriter, r *http.Request) {
	run := h.loadRun(w, r, "id")
	if run == nil {
		return
	}

	q := r.URL.Query()
	limit, ok := queryInt(r, "limit")
	offset, ok2 := queryInt(r, "offset")
	if !ok || !ok2 {
		writeError(w, http.StatusBadRequest, "invalid limit or offset")
		return
	}
	csvOut := q.Get("format") == "csv"
	if csvOut && limit == 0 && run.Total > 0 {
		limit = run.Total
	}

	filter := store.ResultFilter{Limit: limit, Offset: offset}
	if t := q.Get("tier"); t != "" {
		tier := scoring.Tier(t)
		filter.Tier = &tier
	}
	if c := q.Get("computable"); c != "" {
		computable := c == "true"
		filter.Computable = &computable
	}

	records, err := h.store.ListResults(r.Context(), run.ID, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if csvOut {
		results := make([]scoring.ScoreResult, len(records))
		for i, rec := range records {
			results[i] = rec.Result
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="run-`+run.ID.String()+`.csv"`)
		w.WriteHeader(http.StatusOK)
		_ = report.WriteCSV(w, report.SortForExport(results))
		return
	}

	if records == nil {
		records = []*store.ResultRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

type DistributionResponse struct {
	RunID          uuid.UUID         `json:"run_id"`
	ProfileVersion string            `json:"profile_version"`
	Total          int               `json:"total"`
	Tiers          []store.TierCount `json:"tiers"`
}

// GET /api/v1/runs/{id}/distribution
func (h *RunsHandler) Distribution(w http.ResponseWriter, r *http.Request) {
	run := h.loadRun(w, r, "id")
	if run == nil {
		return
	}
	tiers, err := h.store.GetTierDistribution(r.Context(), run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tiers == nil {
		tiers = []store.TierCount{}
	}
	writeJSON(w, http.StatusOK, DistributionResponse{
		RunID:          run.ID,
		ProfileVersion: run.ProfileVersion,
		Total:          run.Total,
		Tiers:          tiers,
	})
}
