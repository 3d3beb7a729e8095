package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sagar7057/pharma-backend/internal/app"
	"github.com/Sagar7057/pharma-backend/internal/config"
	"github.com/Sagar7057/pharma-backend/pkg/logger"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Structured JSON logs everywhere except local development runs.
	var log *slog.Logger
	if cfg.Environment == "development" {
		log = logger.NewDevelopment("pharma-backend", cfg.LogLevel)
	} else {
		log = logger.New("pharma-backend", cfg.LogLevel)
	}
	log.Info("starting pharma backend",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
	)

	// Create the application with all dependencies wired.
	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create a context that is canceled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Run the application. This blocks until shutdown.
	if err := application.Run(ctx); err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("pharma backend stopped")
}
