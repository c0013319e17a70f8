package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
)

// ErrEmptyPrompt is returned when an image prompt is empty or only whitespace
var ErrEmptyPrompt = errors.New("prompt must not be empty")

// ImagePrompt is the instruction sent for an image request
func ImagePrompt(prompt string) string {
	return "Generate an image of: " + prompt
}

// GenerateImage asks the image model for a single picture and returns it
// base64 encoded
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	resp, err := c.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         ImagePrompt(prompt),
		Model:          c.imageModel,
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1024x1024,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return "", fmt.Errorf("no image returned, try a more descriptive prompt")
	}
	return resp.Data[0].B64JSON, nil
}
