package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/SolyforTrenchers/SolyforTrenchers/service/config"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/db"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/metrics"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/risk"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/temporal"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server for the token monitoring service.
type Server struct {
	addr         string
	cfg          *config.Config
	store        *db.Store
	scheduler    temporal.Scheduler
	inspector    Inspector
	ssePublisher *SSEPublisher
	cache        *risk.Cache
	metrics      *metrics.Metrics
	logger       *slog.Logger
	server       *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The scheduler is used to create/delete Temporal schedules for token polling.
// The inspector serves the synchronous on-demand analysis endpoint.
// The ssePublisher is optional - if nil, SSE endpoints won't be available.
// The metrics is optional - if nil, metrics endpoints won't be available.
func New(addr string, cfg *config.Config, store *db.Store, scheduler temporal.Scheduler, inspector Inspector, ssePublisher *SSEPublisher, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:         addr,
		cfg:          cfg,
		store:        store,
		scheduler:    scheduler,
		inspector:    inspector,
		ssePublisher: ssePublisher,
		cache:        risk.NewCache(),
		metrics:      m,
		logger:       logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Instruments a handler with HTTP metrics when a collector is configured.
	instrument := func(name string, h http.Handler) http.Handler {
		if s.metrics == nil {
			return h
		}
		return metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
	}

	// Token routes
	mux.Handle("POST /api/v1/tokens", instrument("register_token", handleRegisterToken(s.store, s.scheduler, s.cfg, s.logger)))
	mux.Handle("DELETE /api/v1/tokens/{mint}", instrument("unregister_token", handleUnregisterToken(s.store, s.scheduler, s.logger)))
	mux.Handle("GET /api/v1/tokens/{mint}", instrument("get_token", handleGetToken(s.store, s.logger)))
	mux.Handle("GET /api/v1/tokens", instrument("list_tokens", handleListTokens(s.store, s.logger)))
	mux.Handle("GET /api/v1/tokens/{mint}/assessments", instrument("list_assessments", handleListAssessments(s.store, s.logger)))

	// On-demand analysis (if Solana inspector is configured)
	if s.inspector != nil {
		mux.Handle("POST /api/v1/tokens/{mint}/analyze", instrument("analyze_token", handleAnalyzeToken(s.store, s.inspector, s.cache, s.metrics, s.logger)))
	} else {
		s.logger.Warn("Solana inspector not configured, on-demand analysis disabled")
	}

	// Alert routes
	mux.Handle("GET /api/v1/alerts", instrument("list_alerts", handleListAlerts(s.store, s.logger)))
	mux.Handle("GET /api/v1/stats", instrument("get_stats", handleGetStats(s.store, s.logger)))

	// SSE streaming endpoints (if SSE publisher is configured)
	if s.ssePublisher != nil {
		mux.Handle("GET /api/v1/stream/alerts/{mint}", handleStreamAlerts(s.ssePublisher, s.metrics, s.logger))
		mux.Handle("GET /api/v1/stream/alerts", handleStreamAlerts(s.ssePublisher, s.metrics, s.logger))
		s.logger.Info("SSE streaming endpoints enabled")
	} else {
		s.logger.Warn("SSE publisher not configured, streaming endpoints disabled")
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	// Wrap mux with CORS middleware
	handler := corsMiddleware(mux)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	// Close SSE publisher first (disconnects all clients)
	if s.ssePublisher != nil {
		s.ssePublisher.Close()
	}

	// Then shutdown HTTP server
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers for all requests
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		// Handle preflight OPTIONS requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Pass through to next handler
		next.ServeHTTP(w, r)
	})
}
