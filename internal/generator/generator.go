package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bdougie/genvideo/internal/embeddings"
	"github.com/bdougie/genvideo/internal/models"
	"github.com/bdougie/genvideo/internal/pipeline"
	"github.com/bdougie/genvideo/internal/placeholder"
	"github.com/bdougie/genvideo/internal/storage"
)

const (
	OutputFile = "generated_video.mp4"
	FPS        = 8
	NumFrames  = 16

	similarLimit = 3
)

// ErrEmptyPrompt is returned when the prompt is empty or only whitespace
var ErrEmptyPrompt = errors.New("prompt must not be empty")

// VideoWriter encodes a frame sequence to a file
type VideoWriter interface {
	Validate() error
	Write(ctx context.Context, frames models.FrameSequence, path string) error
}

// Captioner describes one frame of a written clip
type Captioner interface {
	Caption(ctx context.Context, videoPath string, index int) (string, error)
}

// Preflight reports whether a CUDA device looks usable
type Preflight interface {
	HasCUDA(ctx context.Context) bool
}

// Processor runs prompt-to-video generation end to end
type Processor struct {
	loader    pipeline.Loader
	writer    VideoWriter
	logger    *slog.Logger
	preflight Preflight
	captioner Captioner
	store     storage.Storage

	mu   sync.Mutex
	pipe pipeline.Pipeline
	now  func() time.Time
}

// Option configures optional Processor steps
type Option func(*Processor)

// WithPreflight logs a warning before loading when no CUDA device is found
func WithPreflight(p Preflight) Option {
	return func(proc *Processor) { proc.preflight = p }
}

// WithCaptioner captions each written clip
func WithCaptioner(c Captioner) Option {
	return func(proc *Processor) { proc.captioner = c }
}

// WithStorage records every successful run
func WithStorage(s storage.Storage) Option {
	return func(proc *Processor) { proc.store = s }
}

func NewProcessor(loader pipeline.Loader, writer VideoWriter, logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		loader: loader,
		writer: writer,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run generates a clip for prompt and writes it to outputPath, replacing any
// existing file. The returned run carries the absolute output path.
func (p *Processor) Run(ctx context.Context, prompt, outputPath string) (models.Run, error) {
	if strings.TrimSpace(prompt) == "" {
		return models.Run{}, ErrEmptyPrompt
	}

	start := p.now()
	run := models.Run{
		ID:         uuid.NewString(),
		Prompt:     prompt,
		FrameCount: NumFrames,
		FPS:        FPS,
		CreatedAt:  start,
	}

	absPath, err := filepath.Abs(outputPath)
	if err != nil {
		return run, fmt.Errorf("failed to resolve output path %s: %w", outputPath, err)
	}
	run.OutputPath = absPath

	if err := p.writer.Validate(); err != nil {
		return run, err
	}

	pipe, err := p.pipeline(ctx)
	if err != nil {
		return run, err
	}
	run.ModelID = pipe.ModelID()

	p.logger.Info("generating video", "prompt", prompt, "frames", NumFrames)
	frames, err := pipe.Generate(ctx, placeholder.New(), prompt, NumFrames)
	if err != nil {
		return run, err
	}

	seq := models.FrameSequence{Frames: frames, FPS: FPS}
	size := seq.Size()
	run.FrameCount = seq.Len()
	run.Width, run.Height = size.X, size.Y

	p.logger.Info("encoding video", "frames", seq.Len(), "fps", FPS, "path", absPath)
	if err := p.writer.Write(ctx, seq, absPath); err != nil {
		return run, err
	}

	p.postProcess(ctx, &run, seq)
	run.Elapsed = p.now().Sub(start)

	if p.store != nil {
		p.findSimilar(ctx, &run)
		if err := p.store.AddRun(ctx, run); err != nil {
			p.logger.Warn("failed to record run", "error", err)
		} else if err := p.store.Flush(); err != nil {
			p.logger.Warn("failed to flush run history", "error", err)
		}
	}

	return run, nil
}

// pipeline runs the loader on first use and reuses the result afterwards
func (p *Processor) pipeline(ctx context.Context) (pipeline.Pipeline, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pipe != nil {
		return p.pipe, nil
	}

	if p.preflight != nil && !p.preflight.HasCUDA(ctx) {
		p.logger.Warn("no CUDA device detected, model loading will likely fail")
	}

	p.logger.Info("loading pipeline")
	pipe, err := p.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	p.pipe = pipe
	return pipe, nil
}

// postProcess fills in the fingerprint and caption; failures are only logged
func (p *Processor) postProcess(ctx context.Context, run *models.Run, seq models.FrameSequence) {
	fp, err := embeddings.Fingerprint(ctx, seq.Frames)
	if err != nil {
		p.logger.Warn("failed to fingerprint clip", "error", err)
	} else {
		run.Fingerprint = fp
	}

	if p.captioner == nil {
		return
	}
	caption, err := p.captioner.Caption(ctx, run.OutputPath, seq.Len()/2)
	if err != nil {
		p.logger.Warn("failed to caption clip", "error", err)
		return
	}
	run.Caption = caption
	p.logger.Info("clip captioned", "caption", caption)
}

// findSimilar attaches the closest earlier runs when the store can search
// fingerprints. It runs before the new run is recorded so the clip never
// matches itself.
func (p *Processor) findSimilar(ctx context.Context, run *models.Run) {
	searcher, ok := p.store.(storage.Searcher)
	if !ok || len(run.Fingerprint) == 0 {
		return
	}

	results, err := searcher.SearchSimilarRuns(ctx, run.Fingerprint, similarLimit)
	if err != nil {
		p.logger.Warn("failed to search run history", "error", err)
		return
	}
	run.Similar = results
	for _, r := range results {
		p.logger.Info("similar earlier run", "run", r.RunID, "prompt", r.Prompt, "similarity", r.Similarity)
	}
}

// Report prints the absolute form of path followed by a newline
func Report(w io.Writer, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve output path %s: %w", path, err)
	}
	_, err = fmt.Fprintln(w, abs)
	return err
}
