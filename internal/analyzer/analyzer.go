package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/agent-api/core/pkg/agent"

	"github.com/bdougie/genvideo/internal/extractor"
)

const captionPrompt = "What is happening in this image? Be specific and brief."

// Captioner describes a produced clip using a vision agent
type Captioner struct {
	agent   *agent.DefaultAgent
	logger  *slog.Logger
	extract func(ctx context.Context, videoPath, outputDir string, index int) (string, error)
}

// NewCaptioner wraps a vision agent created by NewAgent
func NewCaptioner(a *agent.DefaultAgent, logger *slog.Logger) *Captioner {
	return &Captioner{
		agent:   a,
		logger:  logger,
		extract: extractor.ExtractFrame,
	}
}

// Caption extracts the frame at index from videoPath and describes it
func (c *Captioner) Caption(ctx context.Context, videoPath string, index int) (string, error) {
	dir, err := os.MkdirTemp("", "genvideo-caption-*")
	if err != nil {
		return "", fmt.Errorf("failed to create frame directory: %w", err)
	}
	defer os.RemoveAll(dir)

	framePath, err := c.extract(ctx, videoPath, dir, index)
	if err != nil {
		return "", err
	}
	return c.describe(ctx, framePath)
}

func (c *Captioner) describe(ctx context.Context, imagePath string) (string, error) {
	response := c.agent.Run(
		ctx,
		agent.WithInput(captionPrompt),
		agent.WithImagePath(imagePath),
	)
	if response.Err != nil {
		return "", response.Err
	}

	if len(response.Messages) == 0 {
		return "", fmt.Errorf("no response messages received from model")
	}

	// Get the model's response (not the prompt)
	content := strings.TrimSpace(response.Messages[len(response.Messages)-1].Content)
	c.logger.Debug("caption received", "frame", imagePath, "chars", len(content))

	return content, nil
}
