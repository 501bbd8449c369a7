package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
	"github.com/MikeSquared-Agency/Solvency/internal/store"
)

type ExplainHandler struct {
	store store.Store
}

func NewExplainHandler(s store.Store) *ExplainHandler {
	return &ExplainHandler{store: s}
}

type ExplainResponse struct {
	RunID               uuid.UUID                  `json:"run_id"`
	Municipality        scoring.Municipality       `json:"municipality"`
	ProfileVersion      string                     `json:"profile_version"`
	Computable          bool                       `json:"computable"`
	Score               *float64                   `json:"score"`
	NotComputableReason string                     `json:"not_computable_reason,omitempty"`
	Tier                scoring.Tier               `json:"tier"`
	TierLabel           string                     `json:"tier_label"`
	Ceiling             float64                    `json:"ceiling"`
	MaxScore            float64                    `json:"max_score"`
	Factors             []scoring.FactorResult     `json:"factors"`
	Flags               []scoring.Flag             `json:"flags"`
	Pending             []scoring.PendingIndicator `json:"pending"`
	Trail               []scoring.Stage            `json:"trail"`
}

// Explain returns the factor breakdown behind one stored score.
// GET /api/v1/scoring/explain/{run_id}/{code}
func (h *ExplainHandler) Explain(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "run_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run_id")
		return
	}
	code := chi.URLParam(r, "code")

	rec, err := h.store.GetResult(r.Context(), id, code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "result not found")
		return
	}

	res := rec.Result
	writeJSON(w, http.StatusOK, ExplainResponse{
		RunID:               rec.RunID,
		Municipality:        res.Municipality,
		ProfileVersion:      res.ProfileVersion,
		Computable:          res.Computable,
		Score:               res.Score,
		NotComputableReason: res.NotComputableReason,
		Tier:                res.Tier,
		TierLabel:           res.TierLabel,
		Ceiling:             res.Ceiling,
		MaxScore:            res.MaxScore,
		Factors:             res.Factors,
		Flags:               res.Flags,
		Pending:             res.Pending,
		Trail:               res.Trail,
	})
}
