package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bdougie/genvideo/internal/config"
	"github.com/bdougie/genvideo/internal/generator"
	"github.com/bdougie/genvideo/internal/jobs"
	"github.com/bdougie/genvideo/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(os.Stderr, cfg.LogLevel)

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		logger.Error("failed to create output directory", "dir", cfg.OutputDir, "error", err)
		os.Exit(1)
	}

	rdb, err := jobs.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to initialize queue", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	processor, cleanup := generator.Setup(ctx, cfg, logger, os.Stderr)
	defer cleanup()

	worker := jobs.NewWorker(jobs.NewQueue(rdb), processor, cfg.OutputDir, logger)
	if err := worker.Listen(ctx); err != nil {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("worker shut down")
}
