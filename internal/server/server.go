// Package server serves one session over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/datasync-solution/bmc-analyst/internal/metrics"
	"github.com/datasync-solution/bmc-analyst/internal/session"
)

// Config configures the HTTP server.
type Config struct {
	Port           int
	AllowedOrigins []string
}

type Server struct {
	session *session.Session
	metrics *metrics.Collector
	logger  *slog.Logger
	origins map[string]struct{}
	server  *http.Server
}

// New builds the server. A nil collector disables /metrics and request
// metrics.
func New(sess *session.Session, cfg Config, mc *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		session: sess,
		metrics: mc,
		logger:  logger,
		origins: make(map[string]struct{}, len(cfg.AllowedOrigins)),
	}
	for _, o := range cfg.AllowedOrigins {
		s.origins[o] = struct{}{}
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.registerRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Addr returns the listen address.
func (s *Server) Addr() string { return s.server.Addr }

// Start serves in the background. Listen errors are sent on errChan.
func (s *Server) Start(wg *sync.WaitGroup, errChan chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.logger.Info("api server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
