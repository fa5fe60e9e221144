package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"conelog/internal/auth"
	"conelog/internal/config"
	"conelog/internal/http/ratelimit"
	"conelog/internal/metrics"
	"conelog/internal/store"
)

// NewRouter wires all HTTP routes.
func NewRouter(cfg *config.Config, stor *store.Store, authService *auth.Service, handler *Handler) http.Handler {
	r := chi.NewRouter()

	// API endpoints: 20 requests per second, burst of 50
	apiRateLimiter := ratelimit.NewIPRateLimiter(rate.Limit(20), 50, 5*time.Minute, cfg.TrustedProxies)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := stor.HealthCheck(ctx); err != nil {
			http.Error(w, "unready", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.PrometheusEnabled {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			metrics.Handler().ServeHTTP(w, r)
		})
	}

	// Public: the SPA fetches provider details here before it can log in.
	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, authService.ProviderInfo())
	})

	r.Group(func(r chi.Router) {
		r.Use(apiRateLimiter.Middleware())
		r.Use(authService.RequireAuth)
		registerAPIRoutes(r, handler)
	})

	return r
}

// registerAPIRoutes mounts the authenticated API surface.
func registerAPIRoutes(r chi.Router, handler *Handler) {
	r.Get("/events", handler.ListEvents)
	r.Post("/events", handler.CreateEvent)
	r.Get("/events/range/{start}/{end}", handler.ListEventsByRange)
	r.Get("/events/{id}", handler.GetEvent)
	r.Put("/events/{id}", handler.UpdateEvent)
	r.Delete("/events/{id}", handler.DeleteEvent)

	r.Get("/stats", handler.GetStats)
	r.Get("/analysis", handler.GetAnalysis)

	r.Get("/export", handler.Export)
	r.Post("/import", handler.Import)
	r.Post("/normalize", handler.Normalize)

	// Token management is off limits to access tokens themselves.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireOIDC)
		r.Get("/tokens", handler.ListTokens)
		r.Post("/tokens", handler.CreateToken)
		r.Delete("/tokens/{id}", handler.RevokeToken)
	})
}
