package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/ledgersync/internal/app"
	"github.com/JonMunkholm/ledgersync/internal/config"
	"github.com/JonMunkholm/ledgersync/internal/logging"
	"github.com/JonMunkholm/ledgersync/internal/web"
	"github.com/JonMunkholm/ledgersync/internal/workbook"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	a, err := app.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()
	slog.Info("components ready", "app", a.String())

	server := web.NewServer(cfg, web.Deps{
		Importer:    a.Importer,
		Exporter:    a.Exporter,
		Decoder:     a.Codec,
		Backup:      a.Backup,
		Session:     a.Session,
		Progress:    a.Progress,
		Limiter:     a.Limiter,
		ContentType: workbook.ContentType,
	})

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go a.Scheduler().Run(jobCtx)

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if op := a.Limiter.Current(); op != "" {
			slog.Info("waiting for operation to complete", "operation", op)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-shutdownDone
	slog.Info("server stopped")
}
