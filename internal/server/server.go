// Package server exposes the ranking engine over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"livebetter/internal/catalog"
	"livebetter/internal/common/config"
	"livebetter/internal/common/logger"
	"livebetter/internal/nlparse"
	"livebetter/internal/rankcache"
	"livebetter/internal/ranking"
)

// Server wires the HTTP surface to the ranking engine.
type Server struct {
	engine  *ranking.Engine
	parser  *nlparse.Parser
	catalog catalog.Store
	cache   *rankcache.Cache
	logger  logger.Logger
	http    *http.Server
}

// New builds the server and its router.
func New(
	cfg *config.ServerConfig,
	engine *ranking.Engine,
	parser *nlparse.Parser,
	store catalog.Store,
	cache *rankcache.Cache,
	log logger.Logger,
) *Server {
	s := &Server{
		engine:  engine,
		parser:  parser,
		catalog: store,
		cache:   cache,
		logger:  log,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestID)
	r.Use(s.requestLogger)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/rank", s.handleRank)
		r.Post("/parse", s.handleParse)
		r.Post("/metros/batch", s.handleMetrosBatch)
		r.Post("/cache/invalidate", s.handleInvalidate)
	})

	s.http = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.GetDuration(cfg.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.WriteTimeout),
		IdleTimeout:  2 * time.Minute,
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks serving HTTP until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", map[string]interface{}{"addr": s.http.Addr})
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
