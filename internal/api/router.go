package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/corkboard/internal/boardservice"
)

// Config configures the API router.
type Config struct {
	Auth AuthConfig
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *boardservice.Service, cfg Config) chi.Router {
	h := NewHandler(svc, cfg.Events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.Auth))

	// Users.
	r.Post("/login", h.Login)
	r.Put("/users/{userId}", h.UpdateUser)

	// Boards.
	r.Route("/workspace/{userId}", func(r chi.Router) {
		r.Get("/", h.GetWorkspace)
		r.Post("/", h.SaveWorkspace)
		r.Get("/export.png", h.ExportPNG)
		r.Post("/analyze", h.Analyze)
		r.Post("/advice", h.Advice)
		r.Get("/stats", h.Stats)
	})

	r.Post("/classify", h.Classify)
	r.Get("/share/{workspaceId}", h.Share)

	if cfg.Events != nil {
		r.Get("/events", h.Events)
	}

	return r
}
