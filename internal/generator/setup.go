package generator

import (
	"context"
	"io"
	"log/slog"

	"github.com/bdougie/genvideo/internal/analyzer"
	"github.com/bdougie/genvideo/internal/config"
	"github.com/bdougie/genvideo/internal/device"
	"github.com/bdougie/genvideo/internal/encoder"
	"github.com/bdougie/genvideo/internal/pipeline"
	"github.com/bdougie/genvideo/internal/storage"
)

// Setup builds a Processor from cfg. Optional history and captioning are
// skipped with a warning when their backends are unreachable. The returned
// cleanup releases any database pool.
func Setup(ctx context.Context, cfg config.Config, logger *slog.Logger, stderr io.Writer) (*Processor, func()) {
	cleanup := func() {}

	loader := pipeline.NewDiffusersLoader(pipeline.Options{
		Interpreter: cfg.Python,
		Stderr:      stderr,
	})

	opts := []Option{WithPreflight(device.NewDetector())}

	switch {
	case cfg.DatabaseURL != "":
		if err := storage.InitSchema(ctx, cfg.DatabaseURL); err != nil {
			logger.Warn("run history disabled", "error", err)
			break
		}
		pg, err := storage.NewPostgresStorage(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("run history disabled", "error", err)
			break
		}
		cleanup = pg.Close
		opts = append(opts, WithStorage(pg))
	case cfg.HistoryFile != "":
		opts = append(opts, WithStorage(storage.NewJSONStorage(cfg.HistoryFile)))
	}

	if cfg.OllamaURL != "" {
		visionAgent, err := analyzer.NewAgent(ctx, logger, cfg.OllamaURL)
		if err != nil {
			logger.Warn("captioning disabled", "error", err)
		} else {
			opts = append(opts, WithCaptioner(analyzer.NewCaptioner(visionAgent, logger)))
		}
	}

	return NewProcessor(loader, encoder.NewWriter(), logger, opts...), cleanup
}
