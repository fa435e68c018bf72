// Deliberatorium debate server: provides the HTTP API and the WebSocket
// event channel, and runs agent turns.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/deliberatorium/pkg/api"
	"github.com/codeready-toolchain/deliberatorium/pkg/cleanup"
	"github.com/codeready-toolchain/deliberatorium/pkg/config"
	"github.com/codeready-toolchain/deliberatorium/pkg/debate"
	"github.com/codeready-toolchain/deliberatorium/pkg/events"
	"github.com/codeready-toolchain/deliberatorium/pkg/generator"
	"github.com/codeready-toolchain/deliberatorium/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Parse command-line flags
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	ctx := context.Background()

	// 1. Initialize configuration
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}
	httpPort := getEnv("HTTP_PORT", cfg.Server.Port)

	slog.Info("Starting Deliberatorium",
		"version", version.Full(),
		"http_port", httpPort,
		"config_dir", *configDir)

	// 2. Create the agent generator
	gen, err := generator.New(ctx, cfg.Generator)
	if err != nil {
		slog.Error("Failed to initialize generator", "backend", cfg.Generator.Backend, "error", err)
		os.Exit(1)
	}
	slog.Info("Generator initialized", "backend", cfg.Generator.Backend)

	// 3. Event channel and debate service
	connManager := events.NewConnectionManager(cfg.Server.WSWriteTimeout)
	publisher := events.NewPublisher(connManager)
	registry := debate.NewRegistry(cfg.Turns.MaxTurns)
	debateService := debate.NewService(registry, publisher, gen, cfg.RosterCopy(), cfg.Turns)
	connManager.SetHandler(debateService)
	slog.Info("Debate service initialized",
		"roster", len(cfg.Roster),
		"turn_delay", cfg.Turns.Delay,
		"turn_timeout", cfg.Turns.Timeout,
		"on_timeout", cfg.Turns.OnTimeout)

	// 4. Idle debate eviction
	if !cfg.Retention.Disabled {
		cleanupService := cleanup.NewService(cfg.Retention, registry)
		cleanupService.Start(ctx)
		defer cleanupService.Stop()
	}

	// 5. Create HTTP server
	httpServer := api.NewServer(cfg, debateService, connManager)

	// 6. Start HTTP server (non-blocking)
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(":" + httpPort); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("Deliberatorium started successfully")

	// 7. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 8. Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop the debate service first so no new turn starts while draining
	done := make(chan struct{})
	go func() {
		debateService.Stop()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Debate service stopped gracefully")
	case <-shutdownCtx.Done():
		slog.Warn("Shutdown timeout exceeded, abandoning in-flight turns")
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
