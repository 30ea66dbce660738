package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/docqueryhq/docquery/internal/api/handlers"
	"github.com/docqueryhq/docquery/internal/api/middlewares"
	"github.com/docqueryhq/docquery/internal/config"
	"github.com/docqueryhq/docquery/internal/core"
	"github.com/docqueryhq/docquery/internal/core/database"
	"github.com/docqueryhq/docquery/internal/core/ingest"
	"github.com/docqueryhq/docquery/internal/query"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *zap.SugaredLogger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, store *database.Store, obj core.ObjectClient,
	ingestor *ingest.Ingestor, retriever *query.Retriever, synth *query.Synthesizer,
	log *zap.SugaredLogger) *Server {

	docHandler := handlers.NewDocumentHandler(store, store, obj, ingestor, cfg, log)
	queryHandler := handlers.NewQueryHandler(retriever, synth, log)
	batchHandler := handlers.NewBatchHandler(store, store, obj, ingestor, retriever, synth, cfg, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"docquery: document question-answering service"}`))
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/documents/upload", docHandler.Upload)
		api.Get("/documents", docHandler.List)
		api.Get("/documents/{id}", docHandler.Get)
		api.Delete("/documents/{id}", docHandler.Delete)

		api.Post("/query", queryHandler.Query)

		api.Group(func(protected chi.Router) {
			protected.Use(middlewares.BearerToken(cfg.BatchAPIToken))
			protected.Post("/batch", batchHandler.Run)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	return &Server{httpServer: httpSrv, log: log}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Infow("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Infow("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
