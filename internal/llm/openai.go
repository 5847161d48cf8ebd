package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/edgard/tgassist/internal/config"
)

type openAIClient struct {
	*modelSet
	client      *openai.Client
	log         *slog.Logger
	temperature float32
	maxRetries  int
	retryDelay  time.Duration
}

// NewOpenAIClient creates a client for an OpenAI-compatible chat completions API.
// ai.base_url points it at another vendor.
func NewOpenAIClient(cfg config.AIConfig, log *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}
	set, err := newModelSet(cfg.Model, cfg.Models)
	if err != nil {
		return nil, err
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger := log.With("component", "openai_client")
	logger.Info("OpenAI client initialized successfully", "model", set.Model(), "base_url", clientCfg.BaseURL)
	return &openAIClient{
		modelSet:    set,
		client:      openai.NewClientWithConfig(clientCfg),
		log:         logger,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
	}, nil
}

// Generate sends the prompt as a single user message.
func (c *openAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.Model(),
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	for i := 0; ; i++ {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", errors.New("model returned no choices")
			}
			text := strings.TrimSpace(resp.Choices[0].Message.Content)
			if text == "" {
				return "", errors.New("model returned empty text")
			}
			return text, nil
		}

		var apiErr *openai.APIError
		retriable := errors.As(err, &apiErr) && (apiErr.HTTPStatusCode == 500 || apiErr.HTTPStatusCode == 503)
		if !retriable || i >= c.maxRetries {
			c.log.ErrorContext(ctx, "OpenAI API call failed", "model", req.Model, "attempt", i+1, "error", err)
			return "", fmt.Errorf("openai API call failed: %w", err)
		}

		c.log.WarnContext(ctx, "Retrying OpenAI API call", "attempt", i+1, "delay", c.retryDelay, "code", apiErr.HTTPStatusCode)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
}
