package api

import (
	"net/http"
	"route-dispatch-service/internal/api/handlers"
	"route-dispatch-service/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Deps struct {
	Runner  handlers.Runner
	Store   ports.AssignmentStore
	Secret  string
	Logger  zerolog.Logger
	Metrics http.Handler
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(loggingMiddleware(d.Logger))
	r.Use(middleware.Recoverer)

	dispatch := &handlers.DispatchHandler{Runner: d.Runner}
	routes := &handlers.RoutesHandler{Store: d.Store}

	r.Get("/health", handlers.Health)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(requireSecret(d.Secret))
		r.Get("/cron/dispatch", dispatch.Trigger)
		r.Post("/cron/dispatch", dispatch.Trigger)
		r.Get("/tenants/{tenantID}/routes/{date}", routes.Get)
	})

	return r
}
