package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/autopp/serverify/internal/routeconfig"
)

// Recorder is the full recorder surface the router wires into its handlers.
type Recorder interface {
	SessionRecorder
	RequestRecorder
}

// RouterConfig holds all dependencies needed to build the router.
type RouterConfig struct {
	Recorder Recorder
	Routes   []routeconfig.RouteDefinition
	Logger   zerolog.Logger
}

// NewRouter creates the chi router joining the health probe, the mock
// data-plane and the session control-plane on one listener.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	health := &HealthHandler{}
	r.Get("/health", health.Health)

	MountMockRoutes(r, cfg.Routes, cfg.Recorder)

	sessions := &SessionHandler{Recorder: cfg.Recorder}
	r.Post("/session", sessions.Create)
	r.Get("/session/{name}", sessions.Get)
	r.Delete("/session/{name}", sessions.Delete)

	return r
}
