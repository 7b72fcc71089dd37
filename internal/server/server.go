// internal/server/server.go

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"OfficeSLAMonitor/internal/config"
	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/metrics"
	"OfficeSLAMonitor/internal/middleware"

	"github.com/gorilla/mux"
)

type Server struct {
	httpServer *http.Server
	router     *mux.Router
	cfg        *config.Config
	metrics    *metrics.Metrics
	log        *logger.Logger
	ctx        context.Context
}

// New builds the HTTP server. ctx bounds background work owned by the
// middleware chain such as rate-limit bucket eviction.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log *logger.Logger) *Server {
	router := mux.NewRouter()

	return &Server{
		router:  router,
		cfg:     cfg,
		metrics: m,
		log:     log,
		ctx:     ctx,
		httpServer: &http.Server{
			Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:        router,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		},
	}
}

// Root is the bare router used for health and metrics.
func (s *Server) Root() *mux.Router {
	return s.router
}

// Mount returns a subrouter under prefix with the standard middleware chain.
func (s *Server) Mount(prefix string) *mux.Router {
	sub := s.router.PathPrefix(prefix).Subrouter()

	sub.Use(middleware.RequestLogger(s.log, s.metrics))
	sub.Use(middleware.CORS(s.cfg.Security.CORSAllowedOrigins, s.cfg.Security.CORSAllowedMethods))
	sub.Use(middleware.Recovery(s.log))

	if s.cfg.Security.EnableRateLimit {
		sub.Use(middleware.RateLimit(s.ctx, s.cfg.Security.RateLimitPerMinute))
	}

	return sub
}

// ServeMetrics exposes the Prometheus registry at /metrics.
func (s *Server) ServeMetrics() {
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.log.Info("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}
