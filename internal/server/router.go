package server

import (
	"net/http"

	"github.com/docwise/medkb/internal/api"
	"github.com/docwise/medkb/internal/api/handlers"
	"github.com/docwise/medkb/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	AuthValidator middleware.AuthValidator
	QueryHandler  *handlers.QueryHandler
	SearchHandler *handlers.SearchHandler
	IndexHandler  *handlers.IndexHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Post("/query", cfg.QueryHandler.Query)
		r.Get("/search", cfg.SearchHandler.Search)
		r.Post("/reindex", cfg.IndexHandler.Reindex)
		r.Post("/ingest", cfg.IndexHandler.Ingest)
	})

	return r
}
