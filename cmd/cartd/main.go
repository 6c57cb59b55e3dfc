// cartd - Local cart daemon.
// Synchronizes a shopper's cart across an ephemeral guest tier, a durable
// local mirror, and the authoritative remote store API, serving UI
// processes over REST, SSE, and MCP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cartd/internal/cart"
	"cartd/internal/config"
	"cartd/internal/handler"
	"cartd/internal/middleware"
	"cartd/internal/remote"
	"cartd/internal/session"
	"cartd/internal/stock"
	"cartd/internal/store"
	"cartd/internal/variant"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Initialize structured logger
	logger := initLogger()

	// Load configuration
	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("store_url", cfg.Store.APIBaseURL),
		slog.String("data_dir", cfg.DataDir),
	)

	// Remote store client (authoritative tier)
	client, err := remote.New(remote.Config{
		BaseURL: cfg.Store.APIBaseURL,
		Timeout: time.Duration(cfg.Store.RequestTimeout) * time.Second,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("creating store client: %w", err)
	}

	// Durable mirror and guest session tiers
	mirror, err := store.NewLocalStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening local mirror: %w", err)
	}
	guest := store.NewSessionStore()

	engine := cart.NewEngine(client, mirror, guest, logger)
	resolver := variant.NewResolver(client, logger)
	gate := stock.NewGate(client, cfg.DebounceWindow, logger)

	h := handler.New(engine, resolver, gate, logger)

	// Setup routes
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: recovery → logging → session → handler
	// Recovery must be outermost to catch panics from logging middleware
	// Session parses the Cart-Session header for tier selection
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.Logging(logger),
		session.Middleware(logger),
	)(mux)

	// Create HTTP server with timeouts. WriteTimeout must accommodate
	// long-lived SSE streams, so it is generous rather than request-sized.
	server := &http.Server{
		Addr:         "127.0.0.1:" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Channel for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel for server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logger.Info("daemon starting",
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Force close if graceful shutdown fails
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("daemon stopped")
	return nil
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	// JSON for production (Cloud Logging compatible), text for development
	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
