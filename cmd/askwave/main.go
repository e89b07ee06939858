package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tkrause92/askwave/internal/config"
	"github.com/tkrause92/askwave/internal/logging"
	"github.com/tkrause92/askwave/internal/supervisor"
	"github.com/tkrause92/askwave/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	if cfg.IsWorker() {
		if err := worker.Run(cfg); err != nil {
			slog.Error("Worker failed", "slot", cfg.WorkerSlot, "error", err)
			os.Exit(1)
		}
		return
	}

	runSupervisor(cfg)
}

func runSupervisor(cfg *config.Config) {
	slog.Info("Supervisor starting", "env", cfg.AppEnv, "workers", cfg.Workers, "base_port", cfg.Port)

	sup, err := supervisor.New(supervisor.Config{
		Workers:  cfg.Workers,
		BasePort: cfg.Port,
	}, slog.Default())
	if err != nil {
		slog.Error("Failed to build supervisor", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Supervisor terminated", "error", err)
		os.Exit(1)
	}

	slog.Info("Supervisor stopped")
}
