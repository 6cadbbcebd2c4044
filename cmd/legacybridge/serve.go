package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/i2y/legacybridge/configs"
	"github.com/i2y/legacybridge/internal/adapter/inbound/httpapi"
	"github.com/i2y/legacybridge/internal/adapter/outbound/github"
	"github.com/i2y/legacybridge/internal/usecase"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis API and the proxy gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	// === Configuration ===
	cfg, err := configs.Load(ctx, github.NewSource(nil, slog.Default()))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// === Logging ===
	logger := newLogger(cfg)
	logger.Info("Logger initialized.", slog.String("level", cfg.ParsedLogLevel().String()), slog.String("format", cfg.LogFormat))

	// === OpenTelemetry Initialization ===
	shutdownOtel, err := initOtelProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			logger.Error("Failed to shutdown OpenTelemetry TracerProvider.", slog.Any("error", err))
		}
	}()

	// === Dependency Injection ===
	logger.Info("Initializing dependencies...")

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("Failed to close configuration store.", slog.Any("error", err))
		}
	}()
	logger.Info("Configuration store ready.", slog.String("store", cfg.Store))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps := newComponents(cfg, reg, logger)

	configureUC, err := usecase.NewConfigureProxyUseCase(store, logger)
	if err != nil {
		return err
	}
	forwardUC := usecase.NewForwardUseCase(store, deps.transport, deps.observer(), cfg.ForwardTimeout, logger)

	if cfg.Proxy != nil {
		if err := configureUC.Apply(ctx, cfg.Proxy); err != nil {
			return fmt.Errorf("failed to apply proxy configuration from %s: %w", cfg.ConfigFilePath, err)
		}
		logger.Info("Proxy configuration seeded from file.",
			slog.String("baseUrl", cfg.Proxy.BaseURL),
			slog.Int("resources", len(cfg.Proxy.Resources)))
	}

	// === HTTP Server Setup ===
	mux := http.NewServeMux()
	httpapi.NewHandlers(deps.analyze, configureUC, forwardUC, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting.", slog.String("address", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal or a listener failure.
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	// === Server Shutdown ===
	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed.", slog.Any("error", err))
		return err
	}
	logger.Info("Server shut down gracefully.")
	return nil
}
