// Package server exposes the chart and token data over HTTP and WebSocket.
//
// REST endpoints serve chart snapshots and token pool state; the WebSocket
// endpoint streams live candle updates to subscribed clients.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nevermind0825/phamous-sub000/internal/model"
	"github.com/nevermind0825/phamous-sub000/internal/service"
)

// defaultConfig provides default configuration values for the API server.
var defaultConfig = Config{
	Addr:            ":8080",
	ReadTimeout:     10 * time.Second,
	WriteTimeout:    10 * time.Second,
	ShutdownTimeout: 5 * time.Second,
}

// Config holds the HTTP server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// ReadTimeout bounds request reads. Does not apply to WebSocket
	// connections once upgraded.
	ReadTimeout time.Duration

	// WriteTimeout bounds response writes for REST endpoints.
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// ChartProvider defines the chart service surface the server depends on.
type ChartProvider interface {
	// CandlesFor returns the candle chart for one symbol at the named period.
	CandlesFor(symbol, period string) ([]model.Candle, error)

	// TokenInfo returns the whitelisted tokens with their latest pool state.
	TokenInfo() ([]service.TokenStatus, error)

	// Subscribe opens a live update subscription for the given symbols.
	Subscribe(symbols []string) (*service.Subscriber, error)

	// Unsubscribe tears a subscription down.
	Unsubscribe(sub *service.Subscriber) error
}

// Server is the HTTP + WebSocket API server for the exchange front-end core.
type Server struct {
	cfg        Config
	charts     ChartProvider
	httpServer *http.Server
}

// NewServer creates a new Server with all routes registered. Zero-valued
// configuration fields fall back to defaults.
func NewServer(cfg Config, charts ChartProvider) *Server {
	if cfg.Addr == "" {
		cfg.Addr = defaultConfig.Addr
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultConfig.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultConfig.WriteTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultConfig.ShutdownTimeout
	}

	s := &Server{
		cfg:    cfg,
		charts: charts,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/candles", s.handleCandles)
	mux.HandleFunc("GET /api/tokens", s.handleTokens)
	mux.HandleFunc("GET /ws", s.handleWS)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// Start begins serving and blocks until the listener fails or Shutdown is
// called. A closed-server error is swallowed so clean shutdowns return nil.
func (s *Server) Start() error {
	log.Info().Str("addr", s.cfg.Addr).Msg("API server listening")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting up to ShutdownTimeout for
// in-flight requests to complete.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	log.Info().Msg("API server stopped")
	return nil
}

// Handler returns the server's root handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
