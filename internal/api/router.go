// Package api wires the HTTP routes.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/pysugar/visionary-studio/internal/api/handlers"
	"github.com/pysugar/visionary-studio/internal/api/middleware"
	"github.com/pysugar/visionary-studio/internal/auth/google"
)

// Dependencies are the collaborators the routes need. Each request handler
// is stateless beyond these.
type Dependencies struct {
	Auth      *google.Controller
	Generator handlers.ImageGenerator
	Exporter  handlers.Exporter
}

// NewRouter builds the application router.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", handlers.HealthHandler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", handlers.VersionHandler())

		// OAuth flow
		r.Get("/auth/google/url", google.HandleAuthURL(deps.Auth))
		r.Get("/auth/google/callback", google.HandleCallback(deps.Auth))
		r.Get("/auth/google/status", google.HandleStatus())

		r.Post("/save-to-google", handlers.SaveToGoogleHandler(deps.Exporter))
		r.Post("/openrouter-generate", handlers.GenerateHandler(deps.Generator))
	})

	return r
}
