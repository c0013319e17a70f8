package models

import (
	"image"
	"time"
)

// FrameSequence is the ordered set of frames produced by a pipeline run
type FrameSequence struct {
	Frames []image.Image
	FPS    int
}

// Len returns the number of frames
func (s FrameSequence) Len() int {
	return len(s.Frames)
}

// Size returns the bounds size of the first frame
func (s FrameSequence) Size() image.Point {
	if len(s.Frames) == 0 {
		return image.Point{}
	}
	return s.Frames[0].Bounds().Size()
}

// Run is the record kept for one generated clip
type Run struct {
	ID          string            `json:"id"`
	Prompt      string            `json:"prompt"`
	ModelID     string            `json:"model_id"`
	FrameCount  int               `json:"frame_count"`
	FPS         int               `json:"fps"`
	OutputPath  string            `json:"output_path"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Fingerprint []float32         `json:"fingerprint,omitempty"`
	Caption     string            `json:"caption,omitempty"`
	Similar     []RunSearchResult `json:"-"`
	CreatedAt   time.Time         `json:"created_at"`
	Elapsed     time.Duration     `json:"elapsed"`
}

// RunSearchResult is a stored run ranked by fingerprint similarity
type RunSearchResult struct {
	RunID      string
	Prompt     string
	OutputPath string
	Similarity float64
}

// JobStatus tracks a queued generation job
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job is a generation request handled by the worker
type Job struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Status    JobStatus `json:"status"`
	VideoURL  string    `json:"video_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
