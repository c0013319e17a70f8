package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/bdougie/genvideo/internal/models"
)

const (
	// QueueVideoGeneration carries one Payload per requested clip
	QueueVideoGeneration = "q_video_generation"

	statusKeyPrefix = "genvideo:job:"
	statusTTL       = 24 * time.Hour
)

// ErrJobNotFound is returned by Status for unknown or expired job ids
var ErrJobNotFound = errors.New("job not found")

// Payload is the JSON message pushed to QueueVideoGeneration
type Payload struct {
	JobID  string `json:"job_id"`
	Prompt string `json:"prompt"`
}

// Marshal creates a JSON payload for a task.
func Marshal(payload interface{}) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Store reads and writes job status
type Store interface {
	Status(ctx context.Context, id string) (models.Job, error)
	SetStatus(ctx context.Context, job models.Job) error
}

// Queue is a Redis list of generation jobs plus a status hash per job
type Queue struct {
	rdb *redis.Client
	now func() time.Time
}

// NewQueue wraps a connected Redis client
func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb, now: time.Now}
}

// NewRedisClient connects to addr and verifies the connection
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Enqueue records a pending job for prompt and pushes it onto the queue
func (q *Queue) Enqueue(ctx context.Context, prompt string) (models.Job, error) {
	now := q.now().UTC()
	job := models.Job{
		ID:        uuid.NewString(),
		Prompt:    prompt,
		Status:    models.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := q.SetStatus(ctx, job); err != nil {
		return job, err
	}

	payload, err := Marshal(Payload{JobID: job.ID, Prompt: prompt})
	if err != nil {
		return job, err
	}
	if err := q.rdb.LPush(ctx, QueueVideoGeneration, payload).Err(); err != nil {
		return job, fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	return job, nil
}

// Pop blocks for up to timeout waiting for the next payload. It returns
// redis.Nil when the wait times out.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	result, err := q.rdb.BRPop(ctx, timeout, QueueVideoGeneration).Result()
	if err != nil {
		return "", err
	}
	// result[0] is the queue name, result[1] is the payload
	return result[1], nil
}

// SetStatus writes the job hash and refreshes its expiry
func (q *Queue) SetStatus(ctx context.Context, job models.Job) error {
	key := statusKeyPrefix + job.ID
	pipe := q.rdb.TxPipeline()
	pipe.HSet(ctx, key, jobToHash(job))
	pipe.Expire(ctx, key, statusTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store status for job %s: %w", job.ID, err)
	}
	return nil
}

// Status returns the stored job
func (q *Queue) Status(ctx context.Context, id string) (models.Job, error) {
	fields, err := q.rdb.HGetAll(ctx, statusKeyPrefix+id).Result()
	if err != nil {
		return models.Job{}, fmt.Errorf("failed to read status for job %s: %w", id, err)
	}
	if len(fields) == 0 {
		return models.Job{}, ErrJobNotFound
	}
	return jobFromHash(fields)
}

func jobToHash(job models.Job) map[string]interface{} {
	return map[string]interface{}{
		"id":         job.ID,
		"prompt":     job.Prompt,
		"status":     string(job.Status),
		"video_url":  job.VideoURL,
		"error":      job.Error,
		"created_at": job.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": job.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func jobFromHash(fields map[string]string) (models.Job, error) {
	job := models.Job{
		ID:       fields["id"],
		Prompt:   fields["prompt"],
		Status:   models.JobStatus(fields["status"]),
		VideoURL: fields["video_url"],
		Error:    fields["error"],
	}

	var err error
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return job, fmt.Errorf("invalid created_at for job %s: %w", job.ID, err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return job, fmt.Errorf("invalid updated_at for job %s: %w", job.ID, err)
	}
	return job, nil
}

// VideoURL is the public path of a job's clip under the server's static route
func VideoURL(jobID string) string {
	return "/videos/" + strings.TrimSpace(jobID) + ".mp4"
}
