package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Solvency/internal/collector"
	"github.com/MikeSquared-Agency/Solvency/internal/runner"
	"github.com/MikeSquared-Agency/Solvency/internal/store"
)

// NewRouter mounts the scoring API. The collector is optional; without it municipality lookups
// only serve stored results.
func NewRouter(s store.Store, rn *runner.Runner, c collector.Client, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))

	score := NewScoreHandler(rn)
	profiles := NewProfilesHandler(rn.Registry())
	runs := NewRunsHandler(s, rn)
	explain := NewExplainHandler(s)
	municipalities := NewMunicipalitiesHandler(s, rn, c)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/score", score.Score)

		r.Get("/profiles", profiles.List)
		r.Get("/profiles/{version}", profiles.Get)

		r.Get("/runs", runs.List)
		r.Get("/runs/{id}", runs.Get)
		r.Get("/runs/{id}/results", runs.Results)
		r.Get("/runs/{id}/distribution", runs.Distribution)

		r.Get("/scoring/explain/{run_id}/{code}", explain.Explain)
		r.Get("/municipalities/{code}/score", municipalities.Score)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Post("/runs", runs.Create)
			r.Post("/runs/refresh", runs.Refresh)
		})
	})

	return r
}

// NewMetricsRouter serves health and Prometheus metrics from g, or the default gatherer when g
// is nil.
func NewMetricsRouter(g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if g == nil {
		r.Handle("/metrics", promhttp.Handler())
	} else {
		r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}
	return r
}
