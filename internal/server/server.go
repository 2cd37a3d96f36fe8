// Package server exposes the read API, scan controls, metrics, and the
// WebSocket stream over a single HTTP listener.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jbetancourt7/surebet/internal/domain"
	"github.com/jbetancourt7/surebet/internal/server/handler"
	"github.com/jbetancourt7/surebet/internal/server/middleware"
	"github.com/jbetancourt7/surebet/internal/server/ws"
)

// apiRateLimit caps authenticated API traffic per client IP.
const (
	apiRateLimit  = 20
	apiRateWindow = time.Second
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health        *handler.HealthHandler
	Opportunities *handler.OpportunityHandler
	Scan          *handler.ScanHandler
}

// Server is the headless HTTP + WebSocket API server for the arbitrage
// engine.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered. Health and
// metrics stay outside authentication; everything under /api and /ws goes
// through the auth and rate-limit chain. registry and limiter may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, registry *prometheus.Registry, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	api := http.NewServeMux()

	// Opportunity read API.
	api.HandleFunc("GET /api/opportunities", handlers.Opportunities.List)
	api.HandleFunc("GET /api/opportunities/{fingerprint}", handlers.Opportunities.Get)
	api.HandleFunc("GET /api/arbitrage/moneyline", handlers.Opportunities.ListMoneyline)
	api.HandleFunc("GET /api/arbitrage/props", handlers.Opportunities.ListProps)

	// Scan controls.
	api.HandleFunc("POST /api/scan/trigger", handlers.Scan.Trigger)
	api.HandleFunc("GET /api/scan/status", handlers.Scan.Status)
	api.HandleFunc("GET /api/scan/cycles", handlers.Scan.Cycles)

	// WebSocket endpoint.
	if wsHub != nil {
		api.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the protected chain.
	var protected http.Handler = api
	protected = middleware.Auth(cfg.APIKey)(protected)
	if limiter != nil {
		protected = middleware.RateLimit(limiter, apiRateLimit, apiRateWindow)(protected)
	}

	root := http.NewServeMux()
	root.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	if registry != nil {
		root.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	root.Handle("/", protected)

	var h http.Handler = root
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
