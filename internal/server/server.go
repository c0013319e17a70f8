package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bdougie/genvideo/internal/jobs"
	"github.com/bdougie/genvideo/internal/models"
	"github.com/bdougie/genvideo/internal/textgen"
)

// JobQueue accepts generation requests and reports their status
type JobQueue interface {
	Enqueue(ctx context.Context, prompt string) (models.Job, error)
	Status(ctx context.Context, id string) (models.Job, error)
}

// TextGenerator writes a social media post about a topic
type TextGenerator interface {
	GeneratePost(ctx context.Context, topic string) (string, error)
}

// ImageGenerator draws a picture for a prompt and returns it base64 encoded
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

type Server struct {
	Router    *gin.Engine
	queue     JobQueue
	text      TextGenerator
	images    ImageGenerator
	outputDir string
	logger    *slog.Logger
}

// Option configures optional routes
type Option func(*Server)

// WithText enables /api/generate-text
func WithText(text TextGenerator) Option {
	return func(s *Server) { s.text = text }
}

// WithImages enables /api/generate-image
func WithImages(images ImageGenerator) Option {
	return func(s *Server) { s.images = images }
}

type generateTextRequest struct {
	Topic string `json:"topic"`
}

type generateImageRequest struct {
	Prompt string `json:"prompt"`
}

type generateVideoRequest struct {
	Prompt string `json:"prompt"`
}

// New builds the HTTP API. Text and image routes answer 503 unless enabled
// through opts.
func New(queue JobQueue, outputDir string, logger *slog.Logger, opts ...Option) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		Router:    router,
		queue:     queue,
		outputDir: outputDir,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := s.Router.Group("/api")
	{
		api.POST("/generate-text", s.generateText)
		api.POST("/generate-image", s.generateImage)
		api.POST("/generate-video", s.generateVideo)
		api.GET("/jobs/:id", s.jobStatus)
	}

	s.Router.Static("/videos", s.outputDir)
}

// Run serves on addr until the listener fails
func (s *Server) Run(addr string) error {
	s.logger.Info("server starting", "addr", addr)
	return s.Router.Run(addr)
}

func (s *Server) generateText(c *gin.Context) {
	var req generateTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic is required"})
		return
	}
	if s.text == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "text generation is not configured"})
		return
	}

	post, err := s.text.GeneratePost(c.Request.Context(), req.Topic)
	if errors.Is(err, textgen.ErrEmptyTopic) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic is required"})
		return
	}
	if err != nil {
		s.logger.Error("text generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate text"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"text": post})
}

func (s *Server) generateImage(c *gin.Context) {
	var req generateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
		return
	}
	if s.images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image generation is not configured"})
		return
	}

	img, err := s.images.GenerateImage(c.Request.Context(), req.Prompt)
	if errors.Is(err, textgen.ErrEmptyPrompt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
		return
	}
	if err != nil {
		s.logger.Error("image generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate image"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"image": img})
}

func (s *Server) generateVideo(c *gin.Context) {
	var req generateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	job, err := s.queue.Enqueue(c.Request.Context(), req.Prompt)
	if err != nil {
		s.logger.Error("failed to enqueue job", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue video generation"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "status": job.Status})
}

func (s *Server) jobStatus(c *gin.Context) {
	job, err := s.queue.Status(c.Request.Context(), c.Param("id"))
	if errors.Is(err, jobs.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if err != nil {
		s.logger.Error("failed to read job status", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read job status"})
		return
	}

	c.JSON(http.StatusOK, job)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
