package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/timescale/TimescaleDB-HybridSearch/embedder"
	"github.com/timescale/TimescaleDB-HybridSearch/internal/config"
	"github.com/timescale/TimescaleDB-HybridSearch/internal/metrics"
	"github.com/timescale/TimescaleDB-HybridSearch/pg"
	"github.com/timescale/TimescaleDB-HybridSearch/search"
)

// Suggester serves typeahead title suggestions; satisfied by *pg.Store.
type Suggester interface {
	Typeahead(ctx context.Context, query string, limit int) ([]pg.TypeaheadHit, error)
}

// Server exposes the four search operations and the read-only lookups over
// HTTP. It embeds query text itself so clients only ever send strings.
type Server struct {
	engine    *search.Engine
	embedder  embedder.Embedder
	suggester Suggester
	logger    *zap.Logger

	httpCfg   config.HTTPConfig
	searchCfg config.SearchConfig

	srv *http.Server
}

type Options struct {
	Engine    *search.Engine
	Embedder  embedder.Embedder
	Suggester Suggester
	Logger    *zap.Logger
	HTTP      config.HTTPConfig
	Search    config.SearchConfig
}

func New(opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if opts.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		engine:    opts.Engine,
		embedder:  opts.Embedder,
		suggester: opts.Suggester,
		logger:    log,
		httpCfg:   opts.HTTP,
		searchCfg: opts.Search,
	}, nil
}

// Router builds the chi router. Exposed separately from Start for tests.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/search", func(r chi.Router) {
		r.Post("/vector", s.handleVectorSearch)
		r.Post("/text", s.handleTextSearch)
		r.Post("/hybrid", s.handleHybridSearch)
		r.Post("/temporal", s.handleTemporalSearch)
	})

	r.Get("/documents/{id}", s.handleGetDocument)
	r.Get("/trap-sets", s.handleListTrapSets)
	r.Get("/trap-sets/{name}", s.handleGetTrapQuartet)
	r.Get("/typeahead", s.handleTypeahead)

	return r
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.httpCfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  time.Duration(s.httpCfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.httpCfg.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(s.httpCfg.ShutdownSec)*time.Second)
	defer cancel()
	s.logger.Info("shutting down http server")
	return s.srv.Shutdown(shutdownCtx)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
