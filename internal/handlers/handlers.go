package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"tilepacks.dev/internal/backend"
	"tilepacks.dev/internal/config"
	"tilepacks.dev/internal/middleware"
	"tilepacks.dev/internal/render"
	"tilepacks.dev/internal/services"
)

// SetupRoutes configures all routes and returns the router
func SetupRoutes(cfg *config.Config, be backend.Backend, log *zap.Logger) (http.Handler, error) {
	renderer, err := render.New(cfg.Site)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))

	// Initialize services
	tagService := services.NewTagService(be, cfg.TagCacheTTL)
	tilePackService := services.NewTilePackService(be, be, cfg.ImageBucket)
	uploadService := services.NewUploadService(tagService, be)

	// Initialize handlers
	pages := NewPageHandler(tilePackService, tagService, renderer, cfg.Site, log)
	uploads := NewUploadHandler(uploadService, tagService, renderer, cfg.MaxImageBytes, log)
	api := NewAPIHandler(tilePackService, tagService, uploadService, cfg.MaxImageBytes, cfg.Site.PageSize, log)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/tags", api.ListTags)
		r.Get("/tilepacks", api.ListTilePacks)
		r.Post("/tilepacks", api.CreateTilePack)
		r.Get("/tilepacks/{publicID}", api.GetTilePack)
		r.Post("/tiles/validate", api.ValidateTiles)

		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	// Pages
	r.Get("/", pages.Home)
	r.Get("/tilepacks", pages.ListTilePacks)
	r.Get("/tilepacks/upload", uploads.Form)
	r.Post("/tilepacks/upload", uploads.Submit)
	r.Post("/tilepacks/upload/tags", uploads.EditTags)
	r.Get("/tilepacks/{publicID}", pages.TilePack)
	r.Get("/tilepacks/{publicID}/{slug}", pages.TilePack)
	r.Get("/tilepacks/{publicID}/{slug}/tiles.json", pages.Tiles)
	r.Get("/tags/{slug}", pages.Tag)

	// Uploaded images, for backends that store them locally
	if store, ok := be.(backend.ObjectStore); ok {
		objects, err := store.ObjectFS(cfg.ImageBucket)
		if err != nil {
			return nil, fmt.Errorf("open image bucket: %w", err)
		}
		prefix := "/storage/" + cfg.ImageBucket
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.FS(objects))))
	}

	// Static files
	r.Handle("/static/*", http.StripPrefix("/static", http.FileServer(http.FS(render.StaticFS()))))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		pages.renderError(w, r, http.StatusNotFound, "Page not found")
	})

	return r, nil
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("encoding JSON response", zap.Error(err))
	}
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps backend failures to an HTTP status
func statusFor(err error) int {
	if errors.Is(err, backend.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}
