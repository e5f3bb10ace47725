package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DukeRupert/credits/internal"
	"github.com/DukeRupert/credits/internal/app"
	"github.com/DukeRupert/credits/internal/handler"
	"github.com/DukeRupert/credits/internal/metrics"
	"github.com/DukeRupert/credits/internal/middleware"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Database, catalog and services
	engine, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	// Initialize middleware
	isSecure := !cfg.IsDevelopment()
	identity := middleware.NewIdentityMiddleware(engine.Credits, logger)
	requestLogging := middleware.NewRequestLoggingMiddleware(logger)
	securityHeaders := middleware.NewSecurityHeadersMiddleware(isSecure)

	adminLimiter := middleware.NewRateLimiter(cfg.AdminRateLimit, time.Minute)
	rateLimit := middleware.NewRateLimitMiddleware(adminLimiter, logger)

	done := make(chan struct{})
	defer close(done)
	go adminLimiter.Cleanup(done)

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(engine.Credits, cfg.HistoryMaxPageSize, logger)
	adminHandler := handler.NewAdminHandler(engine.Credits, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.Handle("GET /health", handler.NewHealthHandler(engine.Store, logger))

	// Prometheus scrape endpoint
	metricsAuth := middleware.BasicAuth("metrics", cfg.MetricsUsername, cfg.MetricsPassword)
	mux.Handle("GET /metrics", metricsAuth(promhttp.Handler()))

	// Account routes (own data, or any account for admins)
	requireActor := middleware.Stack(identity.WithActor, identity.RequireActor)
	accountHandler.RegisterRoutes(mux, requireActor)

	// Admin routes
	requireAdmin := middleware.Stack(identity.WithActor, identity.RequireAdmin, rateLimit.Limit)
	adminHandler.RegisterRoutes(mux, requireAdmin)

	// ==========================================================================
	// Start server
	// ==========================================================================

	root := middleware.Stack(
		metrics.Middleware,
		requestLogging.Handler,
		securityHeaders.Handler,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           root(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
