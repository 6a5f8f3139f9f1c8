package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/mediaview/pkg/api/handlers"
	"github.com/marmos91/mediaview/pkg/api/middleware"
	"github.com/marmos91/mediaview/pkg/viewer"
)

// NewRouter creates the chi router with all middleware and routes.
//
// Routes:
//   - GET    /health
//   - POST   /api/v1/sessions
//   - GET    /api/v1/sessions
//   - GET    /api/v1/sessions/{id}
//   - DELETE /api/v1/sessions/{id}
//   - PUT    /api/v1/sessions/{id}/position
//   - POST   /api/v1/sessions/{id}/next
//   - POST   /api/v1/sessions/{id}/prev
//   - GET    /api/v1/sessions/{id}/media?id=&src=
//   - GET    /api/v1/sessions/{id}/metrics
//   - GET    /api/v1/sessions/{id}/export
//   - POST   /api/v1/sessions/{id}/timers/{timer}/{action}
func NewRouter(config APIConfig, manager *viewer.Manager) http.Handler {
	config.ApplyDefaults()

	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(config.RequestTimeout))
	r.Use(chimw.RequestSize(config.MaxBodyBytes.Int64()))

	health := handlers.NewHealthHandler(manager)
	sessions := handlers.NewSessionHandler(manager)

	r.Get("/health", health.Liveness)

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", sessions.Create)
		r.Get("/", sessions.List)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", sessions.Get)
			r.Delete("/", sessions.Close)
			r.Put("/position", sessions.Navigate)
			r.Post("/next", sessions.Next)
			r.Post("/prev", sessions.Prev)
			r.Get("/media", sessions.Media)
			r.Get("/metrics", sessions.Metrics)
			r.Get("/export", sessions.Export)
			r.Post("/timers/{timer}/{action}", sessions.Timer)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}
