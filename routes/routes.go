package routes

import (
	"net/http"

	"github.com/Prot0type/portfolio-website/app"
	"github.com/Prot0type/portfolio-website/handlers"
	appmiddleware "github.com/Prot0type/portfolio-website/middleware"
	"github.com/Prot0type/portfolio-website/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appmiddleware.AccessLog(deps.Logger, deps.Metrics))
	r.Use(middleware.Recoverer)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(cfg.AppName, deps.StoreHealth, deps.Logger)
	projectHandler := handlers.NewProjectHandler(deps.ProjectService, deps.Logger)
	mediaHandler := handlers.NewMediaHandler(deps.MediaService, deps.TelemetryService, deps.Logger)

	// Health check endpoints
	r.Get("/health", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if cfg.Observability.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	// API routes. Every route resolves the bearer credential; each service
	// operation decides whether it is sufficient.
	r.Route("/api", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.ResolveCredential)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", projectHandler.HandleList)
			r.Post("/", projectHandler.HandleCreate)
			r.Get("/{project_id}", projectHandler.HandleGet)
			r.Put("/{project_id}", projectHandler.HandleUpdate)
			r.Delete("/{project_id}", projectHandler.HandleDelete)
			r.Post("/{project_id}/status", projectHandler.HandleUpdateStatus)
		})

		r.Post("/images/presign", mediaHandler.HandlePresign)
		r.Post("/metrics/view", mediaHandler.HandleRecordView)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
