// Package api provides the HTTP and WebSocket surface of the debate server.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/codeready-toolchain/deliberatorium/pkg/config"
	"github.com/codeready-toolchain/deliberatorium/pkg/debate"
	"github.com/codeready-toolchain/deliberatorium/pkg/events"
)

// Server is the HTTP API server.
type Server struct {
	echo        *echo.Echo
	httpServer  *http.Server
	cfg         *config.ServerConfig
	debates     *debate.Service
	connManager *events.ConnectionManager
}

// NewServer creates a new API server with all routes registered.
func NewServer(cfg *config.Config, debates *debate.Service, connManager *events.ConnectionManager) *Server {
	e := echo.New()

	s := &Server{
		echo:        e,
		cfg:         cfg.Server,
		debates:     debates,
		connManager: connManager,
	}
	s.httpServer = &http.Server{
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes registers all HTTP routes and middleware.
func (s *Server) setupRoutes() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: corsOrigins(s.cfg.AllowedOrigins),
	}))
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/ws", s.wsHandler)

	v1 := s.echo.Group("/api")
	v1.POST("/start_debate", s.startDebateHandler)
	v1.GET("/agents", s.agentsHandler)
	v1.GET("/debates", s.listDebatesHandler)
	v1.GET("/debates/:id", s.getDebateHandler)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr and serves until Shutdown. It returns
// http.ErrServerClosed after a graceful shutdown.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	slog.Info("HTTP server listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown closes viewer connections and gracefully stops the HTTP server.
// Hijacked WebSocket connections are not tracked by http.Server, so they
// are closed first.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.connManager != nil {
		s.connManager.CloseAll()
	}
	if err := s.httpServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func corsOrigins(allowed []string) []string {
	if len(allowed) == 0 {
		return []string{"*"}
	}
	return allowed
}
