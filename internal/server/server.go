// Package server exposes the synthesis service over HTTP: a synthesize
// endpoint backed by the pipeline pool, health and voice listings, and the
// generated Swagger UI.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/andrei-cloud/kokorod/internal/cache"
	"github.com/andrei-cloud/kokorod/internal/config"
	"github.com/andrei-cloud/kokorod/internal/pool"
)

// Server wires the HTTP API to the pipeline pool manager.
type Server struct {
	cfg     config.ServerConfig
	backend string
	mgr     *pool.Manager
	cache   *cache.Store // nil when the cache is disabled
	limiter *visitors    // nil when rate limiting is disabled
	srv     *http.Server
	started time.Time

	requests  atomic.Int64
	cacheHits atomic.Int64
}

// New configures the HTTP server around a pool manager. store may be nil.
func New(cfg config.ServerConfig, backend string, mgr *pool.Manager, store *cache.Store) *Server {
	s := &Server{
		cfg:     cfg,
		backend: backend,
		mgr:     mgr,
		cache:   store,
		started: time.Now(),
	}
	if cfg.RateLimit.Enabled {
		s.limiter = newVisitors(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /synthesize", s.rateLimited(http.HandlerFunc(s.handleSynthesize)))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /voices", s.handleVoices)
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.srv = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.logRequests(mux),
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start begins serving and blocks until the listener closes. A clean
// shutdown via Stop returns nil.
func (s *Server) Start() error {
	if s.limiter != nil {
		s.limiter.startJanitor()
	}

	log.Info().
		Str("event", "server_started").
		Str("addr", s.cfg.Addr()).
		Str("backend", s.backend).
		Msg("http server listening")

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}

	return nil
}

// Stop closes the listener and drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stopJanitor()
	}

	log.Info().Str("event", "server_stopping").Msg("draining http connections")

	return s.srv.Shutdown(ctx)
}
