package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/bdougie/genvideo/internal/models"
)

// Generator produces one clip for a prompt
type Generator interface {
	Run(ctx context.Context, prompt, outputPath string) (models.Run, error)
}

const statusTimeout = 5 * time.Second

// Worker takes jobs off the queue one at a time and runs them
type Worker struct {
	queue     *Queue
	store     Store
	gen       Generator
	outputDir string
	logger    *slog.Logger
	now       func() time.Time
}

// NewWorker creates a worker writing clips to outputDir
func NewWorker(queue *Queue, gen Generator, outputDir string, logger *slog.Logger) *Worker {
	return &Worker{
		queue:     queue,
		store:     queue,
		gen:       gen,
		outputDir: outputDir,
		logger:    logger,
		now:       time.Now,
	}
}

// Listen processes jobs until ctx is cancelled
func (w *Worker) Listen(ctx context.Context) error {
	w.logger.Info("worker listening", "queue", QueueVideoGeneration)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		payload, err := w.queue.Pop(ctx, 5*time.Second)
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("failed to pop from queue", "error", err)
			time.Sleep(time.Second)
			continue
		}

		if err := w.Handle(ctx, payload); err != nil {
			w.logger.Error("job failed", "error", err)
		}
	}
}

// Handle runs a single payload and records the outcome on the job
func (w *Worker) Handle(ctx context.Context, payload string) error {
	var task Payload
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return fmt.Errorf("invalid payload %q: %w", payload, err)
	}

	job, err := w.store.Status(ctx, task.JobID)
	if errors.Is(err, ErrJobNotFound) {
		job = models.Job{ID: task.JobID, Prompt: task.Prompt, CreatedAt: w.now().UTC()}
	} else if err != nil {
		return err
	}

	logger := w.logger.With("job", job.ID)
	logger.Info("processing job")

	job.Status = models.JobProcessing
	job.UpdatedAt = w.now().UTC()
	if err := w.store.SetStatus(ctx, job); err != nil {
		return err
	}

	outputPath := filepath.Join(w.outputDir, job.ID+".mp4")
	run, runErr := w.gen.Run(ctx, task.Prompt, outputPath)

	job.UpdatedAt = w.now().UTC()
	if runErr != nil {
		job.Status = models.JobFailed
		job.Error = runErr.Error()
	} else {
		job.Status = models.JobCompleted
		job.VideoURL = VideoURL(job.ID)
		logger.Info("job completed", "path", run.OutputPath, "elapsed", run.Elapsed)
	}

	// Record the outcome even when shutdown cancelled the run
	statusCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusTimeout)
	defer cancel()
	if err := w.store.SetStatus(statusCtx, job); err != nil {
		return err
	}
	return runErr
}
