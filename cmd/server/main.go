package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/epistat/t2d-analyzer/internal/config"
	"github.com/epistat/t2d-analyzer/internal/core"
	"github.com/epistat/t2d-analyzer/internal/glm"
	"github.com/epistat/t2d-analyzer/internal/loader"
	"github.com/epistat/t2d-analyzer/internal/logging"
	"github.com/epistat/t2d-analyzer/internal/metrics"
	"github.com/epistat/t2d-analyzer/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"weight_column", cfg.Analysis.WeightColumn,
		"max_concurrent_fits", cfg.Analysis.MaxConcurrentFits,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	solver := glm.NewIRLSSolver()
	solver.MaxIter = cfg.Analysis.GLMMaxIter
	solver.Tol = cfg.Analysis.GLMTolerance

	m := metrics.New()

	service, err := core.NewService(cfg, solver, m)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	// Log what this build can actually do before accepting traffic
	slog.Info("capabilities",
		"formats", strings.Join(loader.Formats(), ","),
		"solver_available", service.SolverAvailable(),
	)

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active fits to complete (with timeout)
		if active := service.FitLimiterActive(); active > 0 {
			slog.Info("waiting for model fits to complete", "active", active)
			if err := service.WaitForFits(shutdownCtx); err != nil {
				slog.Warn("fits did not complete in time", "error", err)
			} else {
				slog.Info("all fits completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
