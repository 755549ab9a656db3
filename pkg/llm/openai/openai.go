// Package openai implements the llm.Generator boundary on top of any
// OpenAI-compatible chat-completions API.
package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/entrhq/webpilot/pkg/llm"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"

	// DefaultTemperature keeps plan generation close to deterministic.
	DefaultTemperature = 0.2

	// DefaultMaxTokens bounds the completion; plans are small JSON arrays.
	DefaultMaxTokens = 1024
)

// Generator implements llm.Generator against OpenAI-compatible APIs.
type Generator struct {
	client      openai.Client
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithModel sets the model used for completions.
func WithModel(model string) Option {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithBaseURL points the generator at an OpenAI-compatible endpoint such as
// Azure OpenAI or a local server.
func WithBaseURL(baseURL string) Option {
	return func(g *Generator) {
		if baseURL != "" {
			g.baseURL = baseURL
		}
	}
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(g *Generator) {
		g.temperature = t
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = int64(n)
		}
	}
}

// NewGenerator creates a Generator with the given API key.
//
// If apiKey is empty, the OPENAI_API_KEY environment variable is used. If no
// base URL is provided via WithBaseURL, OPENAI_BASE_URL is consulted before
// falling back to the public endpoint.
func NewGenerator(apiKey string, opts ...Option) (*Generator, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	g := &Generator{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			g.baseURL = envBaseURL
		}
	}

	g.client = openai.NewClient(
		option.WithAPIKey(g.apiKey),
		option.WithBaseURL(g.baseURL),
	)
	return g, nil
}

// Generate sends the prompt as a system+user message pair and returns the
// assistant's text. No retries: backend failures surface to the caller.
func (g *Generator) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openai.SystemMessage(prompt.System))
	}
	messages = append(messages, openai.UserMessage(prompt.User))

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(g.model),
		Messages:    messages,
		Temperature: openai.Float(g.temperature),
		MaxTokens:   openai.Int(g.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// Model returns the model name being used.
func (g *Generator) Model() string {
	return g.model
}

// BaseURL returns the base URL being used for API requests.
func (g *Generator) BaseURL() string {
	return g.baseURL
}
