package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vibevault/vibevault/internal/metrics"
)

// Router assembles the HTTP surface.
type Router struct {
	authHandler     *AuthHandler
	playlistHandler *PlaylistHandler
	authMiddleware  func(http.Handler) http.Handler
	metrics         *metrics.Metrics
	metricsPath     string
	logger          zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	AuthHandler     *AuthHandler
	PlaylistHandler *PlaylistHandler
	AuthMiddleware  func(http.Handler) http.Handler
	Metrics         *metrics.Metrics
	MetricsPath     string
	Logger          zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(cfg RouterConfig) *Router {
	return &Router{
		authHandler:     cfg.AuthHandler,
		playlistHandler: cfg.PlaylistHandler,
		authMiddleware:  cfg.AuthMiddleware,
		metrics:         cfg.Metrics,
		metricsPath:     cfg.MetricsPath,
		logger:          cfg.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler. The auth middleware runs on every
// request and only binds a principal; it never rejects, so public routes
// work with or without a token and protected routes decide 401 themselves.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(AccessLog(rt.logger))
	if rt.metrics != nil {
		r.Use(rt.metrics.Middleware)
	}
	r.Use(rt.authMiddleware)

	r.Get("/health", rt.handleHealth)
	if rt.metrics != nil {
		r.Method(http.MethodGet, rt.metricsPath, rt.metrics.Handler())
	}

	rt.authHandler.RegisterRoutes(r)
	rt.playlistHandler.RegisterRoutes(r)

	return r
}

// handleHealth handles health check requests.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
