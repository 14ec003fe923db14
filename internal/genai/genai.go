// Package genai provides the text-completion client used for slot
// extraction, category generation, gift ranking, and intent resolution.
//
// It wraps the OpenAI-compatible chat completions API. Pointing BaseURL at a
// Groq endpoint works unchanged since Groq speaks the same protocol.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Default configuration values.
const (
	// DefaultModel is the completion model used when none is configured.
	DefaultModel = "llama-3.1-8b-instant"
	// DefaultTemperature balances variety against instruction following.
	DefaultTemperature = 0.7
	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 30 * time.Second
)

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Option configures GenAI client construction.
type Option func(*Opts)

// WithAPIKey sets the API key for the completion service.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint,
// e.g. https://api.groq.com/openai/v1 for Groq.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel sets the completion model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Opts) { o.Temperature = t }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// ClientInterface defines the completion operations flow modules depend on.
// Output is untrusted free text; callers parse defensively.
type ClientInterface interface {
	// GenerateWithMessages runs a chat completion over a full message list.
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
	// GeneratePrompt runs a single system+user completion.
	GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	client      openai.Client
	model       string
	temperature float64
	timeout     time.Duration
}

// NewClient initializes a GenAI client. The API key falls back to the
// GENAI_API_KEY environment variable when not supplied as an option.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		Timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key not set")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}

	slog.Debug("GenAI.NewClient: creating client", "model", cfg.Model, "base_url_set", cfg.BaseURL != "", "timeout", cfg.Timeout)
	return &Client{
		client:      openai.NewClient(reqOpts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}, nil
}

// GenerateWithMessages runs a chat completion over a full message list.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		slog.Error("GenAI.GenerateWithMessages: completion failed", "error", err, "model", c.model)
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Error("GenAI.GenerateWithMessages: no choices returned", "model", c.model)
		return "", fmt.Errorf("no choices returned")
	}

	content := resp.Choices[0].Message.Content
	slog.Debug("GenAI.GenerateWithMessages: completion succeeded", "model", c.model, "response_length", len(content))
	return content, nil
}

// GeneratePrompt runs a single system+user completion.
func (c *Client) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.GenerateWithMessages(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(userPrompt),
	})
}
