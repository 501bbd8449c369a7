package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
)

type ProfilesHandler struct {
	registry *scoring.Registry
}

func NewProfilesHandler(reg *scoring.Registry) *ProfilesHandler {
	return &ProfilesHandler{registry: reg}
}

type ProfileSummary struct {
	Version     string  `json:"version"`
	Description string  `json:"description,omitempty"`
	Ceiling     float64 `json:"ceiling"`
	MaxScore    float64 `json:"max_score"`
	Default     bool    `json:"default"`
}

// GET /api/v1/profiles
func (h *ProfilesHandler) List(w http.ResponseWriter, r *http.Request) {
	def := h.registry.DefaultVersion()
	profiles := h.registry.Profiles()
	out := make([]ProfileSummary, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, ProfileSummary{
			Version:     p.Version,
			Description: p.Description,
			Ceiling:     p.Ceiling,
			MaxScore:    p.MaxScore,
			Default:     p.Version == def,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/v1/profiles/{version}
func (h *ProfilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.registry.Get(chi.URLParam(r, "version"))
	if err != nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
