package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"asyncq/internal/middleware"
)

// RouterConfig holds what NewRouter needs besides the handler.
type RouterConfig struct {
	Validator      middleware.JWTValidator
	RateLimit      middleware.RateLimitConfig
	AllowedOrigins []string
	Gatherer       prometheus.Gatherer // served on /metrics; nil disables it
	Logger         *slog.Logger
}

// NewRouter mounts the handler under /v1 behind bearer authentication and
// adds the unauthenticated /healthz and /metrics endpoints. ctx bounds the
// rate limiter's background eviction.
func NewRouter(ctx context.Context, h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		h.writeStatusError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		h.writeStatusError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RateLimiter(ctx, cfg.RateLimit))
		r.Use(middleware.Authenticate(cfg.Validator))

		r.Post("/async-queries:update-status", h.BulkUpdateStatus)
		r.Post("/async-queries:cleanup", h.Cleanup)
		r.Route("/async-queries/{id}", func(r chi.Router) {
			r.Get("/", h.GetQuery)
			r.Get("/result", h.GetResult)
			r.Post("/result", h.CreateResult)
			r.Put("/status", h.UpdateStatus)
		})
	})
	return r
}
