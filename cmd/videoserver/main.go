package main

import (
	"context"
	"os"

	"github.com/bdougie/genvideo/internal/config"
	"github.com/bdougie/genvideo/internal/jobs"
	"github.com/bdougie/genvideo/internal/logging"
	"github.com/bdougie/genvideo/internal/server"
	"github.com/bdougie/genvideo/internal/textgen"
)

func main() {
	ctx := context.Background()

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

	// Text and image generation stay off without an API key; their routes answer 503
	var opts []server.Option
	if client, err := textgen.NewClient(cfg.OpenAIKey); err != nil {
		logger.Warn("text and image generation disabled", "error", err)
	} else {
		opts = append(opts, server.WithText(client), server.WithImages(client))
	}

	srv := server.New(jobs.NewQueue(rdb), cfg.OutputDir, logger, opts...)
	if err := srv.Run(":" + cfg.Port); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
