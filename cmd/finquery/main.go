package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finquery/internal/assistant"
	"finquery/internal/auth"
	"finquery/internal/backend"
	"finquery/internal/cli"
	"finquery/internal/config"
	apphttp "finquery/internal/http"
	applog "finquery/internal/log"
	"finquery/internal/query"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", backendConfig.Type)
		os.Exit(1)
	}
	defer result.Cleanup()
	logger.Info("Data backend initialized", "backend", backendConfig.Type)

	delegate := assistant.New(assistant.Config{
		APIKey:     cfg.AIAPIKey,
		ServiceURL: cfg.AIServiceURL,
		Model:      cfg.AIModel,
		Timeout:    cfg.AITimeout,
	})
	engine := query.NewEngine(result.Backend, delegate)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenExpiry)

	srv := apphttp.NewServer(":"+cfg.Port, result.Backend, engine, tokens)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting finquery server", "port", cfg.Port, "backend", backendConfig.Type)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
