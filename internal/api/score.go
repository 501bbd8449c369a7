package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/Solvency/internal/runner"
	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
)

type ScoreHandler struct {
	runner *runner.Runner
}

func NewScoreHandler(rn *runner.Runner) *ScoreHandler {
	return &ScoreHandler{runner: rn}
}

// ScoreRequest is a batch of indicator sets. An empty profile_version selects the default
// profile.
type ScoreRequest struct {
	ProfileVersion  string                 `json:"profile_version,omitempty"`
	CarryoverMedian *float64               `json:"carryover_median,omitempty"`
	Sets            []scoring.IndicatorSet `json:"sets"`
}

type ScoreResponse struct {
	ProfileVersion string                `json:"profile_version"`
	Results        []scoring.ScoreResult `json:"results"`
}

// Score evaluates the submitted sets without persisting anything.
// POST /api/v1/score
func (h *ScoreHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Sets) == 0 {
		writeError(w, http.StatusBadRequest, "sets required")
		return
	}

	results, err := h.runner.Score(r.Context(), runner.Request{
		ProfileVersion:  req.ProfileVersion,
		Sets:            req.Sets,
		CarryoverMedian: req.CarryoverMedian,
	})
	if errors.Is(err, scoring.ErrUnknownProfile) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	version := req.ProfileVersion
	if version == "" {
		version = h.runner.Registry().DefaultVersion()
	}
	writeJSON(w, http.StatusOK, ScoreResponse{ProfileVersion: version, Results: results})
}
