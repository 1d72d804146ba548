package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/atriumhq/atrium-backend/internal/api/handlers"
	appMiddleware "github.com/atriumhq/atrium-backend/internal/api/middlewares"
	"github.com/atriumhq/atrium-backend/internal/config"
	"github.com/atriumhq/atrium-backend/internal/core"
	"github.com/atriumhq/atrium-backend/internal/core/ingest"
	"github.com/atriumhq/atrium-backend/internal/core/search"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, store core.AssetStore, obj core.ObjectClient, orch *ingest.Orchestrator, engine *search.Engine) *Server {
	searchHandler := handlers.NewSearchHandler(engine)
	assetHandler := handlers.NewAssetHandler(store, obj, orch)
	ingestHandler := handlers.NewIngestHandler(store, orch)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// The ingest webhook is called by internal pipelines, not browsers.
		api.Post("/ingest", ingestHandler.Ingest)

		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware)
			protected.Post("/search", searchHandler.Search)
			protected.Post("/assets/upload", assetHandler.Upload)
			protected.Get("/assets", assetHandler.List)
			protected.Get("/assets/{id}", assetHandler.Get)
			protected.Post("/assets/{id}/retry", assetHandler.Retry)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
