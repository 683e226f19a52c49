package router

import (
	"net/http"

	"marketsync-api/internal/handler"
	"marketsync-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler          *handler.Handler
	FeedHandler      *handler.FeedHandler
	BatchHandler     *handler.BatchHandler
	InventoryHandler *handler.InventoryHandler
	AdminHandler     *handler.AdminHandler
	AuthMiddleware   func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// AUTHENTICATED routes (use Group to apply auth middleware only to these)
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			// Health check endpoints
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			}

			// Feed endpoints
			if cfg.FeedHandler != nil {
				r.Route("/feeds", func(r chi.Router) {
					r.Post("/", cfg.FeedHandler.Submit)
					r.Get("/", cfg.FeedHandler.List)
					r.Get("/{feed_id}", cfg.FeedHandler.Get)
					r.Post("/{feed_id}/poll", cfg.FeedHandler.Poll)
				})
			}

			// Batch endpoints
			if cfg.BatchHandler != nil {
				r.Route("/batches/{batch_id}", func(r chi.Router) {
					r.Get("/", cfg.BatchHandler.Get)
					r.Get("/items", cfg.BatchHandler.Items)
				})
			}

			// Inventory endpoints
			if cfg.InventoryHandler != nil {
				r.Route("/inventory", func(r chi.Router) {
					r.Post("/retry", cfg.InventoryHandler.RetrySweep)
					r.Route("/{sku}", func(r chi.Router) {
						r.Get("/", cfg.InventoryHandler.Get)
						r.Post("/sync", cfg.InventoryHandler.Sync)
						r.Post("/retry", cfg.InventoryHandler.Retry)
					})
				})
			}

			// Admin endpoints
			if cfg.AdminHandler != nil {
				r.Route("/admin", func(r chi.Router) {
					r.Get("/stats", cfg.AdminHandler.Stats)
					r.Route("/upc", func(r chi.Router) {
						r.Post("/load", cfg.AdminHandler.LoadUPCs)
						r.Post("/sync", cfg.AdminHandler.SyncUPCPool)
						r.Post("/allocate/{product_id}", cfg.AdminHandler.AllocateUPC)
					})
				})
			}
		})
	})

	return r
}
