package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/agent-api/core/pkg/agent"
	"github.com/agent-api/core/types"
	"github.com/agent-api/ollama"
)

// VisionModel is the Ollama model used to caption clips
const VisionModel = "llama3.2-vision:11b"

const systemPrompt = "You are a visual analysis assistant. Describe what a single frame of a short generated video shows in one or two sentences."

// Endpoint splits an Ollama URL such as http://localhost:11434 into the base
// URL and port the provider expects.
func Endpoint(rawURL string) (string, int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", 0, fmt.Errorf("invalid ollama url %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return "", 0, fmt.Errorf("invalid ollama url %q", rawURL)
	}

	port := 11434
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("invalid ollama port %q: %w", p, err)
		}
	}
	return u.Scheme + "://" + u.Hostname(), port, nil
}

// NewAgent initializes and returns a new vision agent for the Ollama server at rawURL
func NewAgent(ctx context.Context, logger *slog.Logger, rawURL string) (*agent.DefaultAgent, error) {
	baseURL, port, err := Endpoint(rawURL)
	if err != nil {
		return nil, err
	}

	// Check if Ollama is running
	if err := ping(ctx, fmt.Sprintf("%s:%d/api/tags", baseURL, port)); err != nil {
		return nil, err
	}

	opts := &ollama.ProviderOpts{
		Logger:  logger,
		BaseURL: baseURL,
		Port:    port,
	}
	provider := ollama.NewProvider(opts)

	model := &types.Model{
		ID: VisionModel,
	}
	provider.UseModel(ctx, model)

	agentConf := &agent.NewAgentConfig{
		Provider:     provider,
		Logger:       logger,
		SystemPrompt: systemPrompt,
	}

	return agent.NewAgent(agentConf), nil
}

func ping(ctx context.Context, endpoint string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama is not reachable: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}
