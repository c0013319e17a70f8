package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ErrEmptyTopic is returned when the topic is empty or only whitespace
var ErrEmptyTopic = errors.New("topic must not be empty")

// PostResponse represents the JSON response from OpenAI
type PostResponse struct {
	Post string `json:"post" jsonschema_description:"A short, engaging social media post"`
}

// GenerateSchema generates a JSON schema for structured outputs
func GenerateSchema[T any]() interface{} {
	// Structured Outputs uses a subset of JSON schema
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var postResponseSchema = GenerateSchema[PostResponse]()

// Client writes social media posts and images with OpenAI models
type Client struct {
	client     openai.Client
	model      openai.ChatModel
	imageModel openai.ImageModel
}

// NewClient creates a client for apiKey. Extra options are passed to the SDK.
func NewClient(apiKey string, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{
		client:     openai.NewClient(opts...),
		model:      openai.ChatModelGPT4oMini,
		imageModel: openai.ImageModelDallE3,
	}, nil
}

// Prompt is the instruction sent for topic
func Prompt(topic string) string {
	return "Write a short, engaging social media post about: " + topic
}

// GeneratePost asks the model for a post about topic
func (c *Client) GeneratePost(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", ErrEmptyTopic
	}

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "social_post",
		Description: openai.String("A short social media post about a topic"),
		Schema:      postResponseSchema,
		Strict:      openai.Bool(true),
	}

	chatCompletion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(Prompt(topic)),
		},
		Model: c.model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(chatCompletion.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	raw := chatCompletion.Choices[0].Message.Content
	if raw == "" {
		return "", fmt.Errorf("OpenAI returned empty response. Finish reason: %s", chatCompletion.Choices[0].FinishReason)
	}

	var resp PostResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return "", fmt.Errorf("failed to parse OpenAI JSON response: %w", err)
	}

	post := strings.TrimSpace(resp.Post)
	if post == "" {
		return "", fmt.Errorf("OpenAI returned empty post")
	}
	return post, nil
}
