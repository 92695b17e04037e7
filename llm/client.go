// Package llm wraps the chat completion API used to pick exam files.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultModel   = openai.GPT4oMini
	DefaultTimeout = 30 * time.Second
)

// ErrEmptyResponse is returned when the API answers without any choice.
var ErrEmptyResponse = errors.New("completion returned no choices")

// Config configures a Client.
type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint, e.g. for a proxy. Empty uses the OpenAI default.
	BaseURL string
	Timeout time.Duration
}

// Client sends single-prompt chat completions.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// NewClient builds a Client from cfg, applying defaults for the model and timeout.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &Client{
		api:     openai.NewClientWithConfig(apiConfig),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// Complete sends prompt as a single user message and returns the trimmed answer.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		// Zero is dropped by omitempty and the API would default to 1.
		Temperature: math.SmallestNonzeroFloat32,
	})
	if err != nil {
		slog.Error("chat completion failed", "model", c.model, "error", err)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	slog.Debug("chat completion finished",
		"model", c.model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"took", time.Since(start))
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
