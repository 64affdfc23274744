// Package server exposes a MetricStore and an EvaluationParameterStore
// over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kylerisse/metricstore/pkg/config"
	"github.com/kylerisse/metricstore/pkg/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

// Server represents the metric store API server
type Server struct {
	metrics    *store.MetricStore
	params     *store.EvaluationParameterStore
	stats      *store.Stats
	logger     *logrus.Logger
	listenPort string
	limiter    *rate.Limiter
}

// NewServer wires the built stores into an API server. stats backs the
// /metrics endpoint and may be nil.
func NewServer(stores *config.Stores, cfg config.ServerConfig, stats *store.Stats, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	if stats == nil {
		stats = store.NewStats()
	}
	port := cfg.ListenPort
	if port == "" {
		port = config.DefaultListenPort
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit == 0 {
		limit = rate.Inf
	}
	return &Server{
		metrics:    stores.Metrics,
		params:     stores.Parameters,
		stats:      stats,
		logger:     logger,
		listenPort: port,
		limiter:    rate.NewLimiter(limit, cfg.RateBurst),
	}
}

// Run serves the API until ctx is cancelled, then shuts the listener down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.listenPort,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Starting API server on port %v...", s.listenPort)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start API server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	s.logger.Info("API server stopped.")
	return nil
}
