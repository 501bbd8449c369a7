package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/Solvency/internal/collector"
	"github.com/MikeSquared-Agency/Solvency/internal/runner"
	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
	"github.com/MikeSquared-Agency/Solvency/internal/store"
)

type MunicipalitiesHandler struct {
	store     store.Store
	runner    *runner.Runner
	collector collector.Client
}

func NewMunicipalitiesHandler(s store.Store, rn *runner.Runner, c collector.Client) *MunicipalitiesHandler {
	return &MunicipalitiesHandler{store: s, runner: rn, collector: c}
}

type MunicipalityScoreResponse struct {
	Live   bool                `json:"live"`
	Result scoring.ScoreResult `json:"result"`
	Record *store.ResultRecord `json:"record,omitempty"`
}

// Score returns the latest stored score for a municipality under a profile. With a collector
// configured, a municipality that was never scored is scored live and not persisted.
// GET /api/v1/municipalities/{code}/score?profile=&period=
func (h *MunicipalitiesHandler) Score(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	version := r.URL.Query().Get("profile")
	if version == "" {
		version = h.runner.Registry().DefaultVersion()
	}
	if _, err := h.runner.Registry().Get(version); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.store.GetLatestResult(r.Context(), code, version)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec != nil {
		writeJSON(w, http.StatusOK, MunicipalityScoreResponse{Result: rec.Result, Record: rec})
		return
	}

	if h.collector == nil {
		writeError(w, http.StatusNotFound, "no score for municipality")
		return
	}
	set, err := h.collector.FetchMunicipality(r.Context(), code, r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if set == nil {
		writeError(w, http.StatusNotFound, "municipality not found")
		return
	}

	// A single set has no peers, so the collector's period median fills the carryover gap.
	median, err := h.collector.FetchCarryoverMedian(r.Context(), set.Period)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	results, err := h.runner.Score(r.Context(), runner.Request{
		ProfileVersion:  version,
		Sets:            []scoring.IndicatorSet{*set},
		CarryoverMedian: median,
	})
	if errors.Is(err, scoring.ErrUnknownProfile) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, MunicipalityScoreResponse{Live: true, Result: results[0]})
}
