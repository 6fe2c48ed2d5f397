package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/paintdesk/ai-engine/app"
	"github.com/paintdesk/ai-engine/handlers"
)

// SetupRoutes configures all application routes and middleware.
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Generous ceiling: streaming generations can legitimately run for
	// minutes when the chain fails over.
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", handlers.ChatHandler(deps))
		r.Post("/chat/stream", handlers.ChatStreamHandler(deps))

		r.Route("/admin", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAdmin)
			r.Get("/settings", handlers.ListSettingsHandler(deps))
			r.Put("/settings", handlers.UpdateSettingsHandler(deps))
			r.Get("/generations", handlers.ListGenerationsHandler(deps))
			r.Get("/generations/{id}", handlers.GetGenerationHandler(deps))
		})
	})

	return r
}
