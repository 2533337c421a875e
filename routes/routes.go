package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/upb/hydra-router/app"
	"github.com/upb/hydra-router/middleware"
	"github.com/upb/hydra-router/utils"
)

// AdminRole is required to force a catalog refresh
const AdminRole = "admin"

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/status", deps.StatusHandler.HandleStatus)

		r.Group(func(r chi.Router) {
			if deps.AuthMiddleware != nil {
				r.Use(deps.AuthMiddleware.RequireAuth)
			}

			r.Get("/tiers", deps.RouteHandler.HandleTiers)

			r.Route("/route", func(r chi.Router) {
				r.Post("/", deps.RouteHandler.HandleRoute)
				r.Post("/fallback", deps.RouteHandler.HandleRouteWithFallback)
				r.Post("/model", deps.RouteHandler.HandleSelectModel)
			})

			r.Route("/models", func(r chi.Router) {
				r.Get("/", deps.ModelsHandler.HandleList)
				r.Group(func(r chi.Router) {
					if deps.AuthMiddleware != nil {
						r.Use(deps.AuthMiddleware.RequireRole(AdminRole))
					}
					r.Post("/refresh", deps.ModelsHandler.HandleRefresh)
				})
			})

			r.Route("/decisions", func(r chi.Router) {
				r.Get("/", deps.DecisionHandler.HandleList)
				r.Get("/stats", deps.DecisionHandler.HandleStats)
				r.Get("/{id}", deps.DecisionHandler.HandleGet)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
