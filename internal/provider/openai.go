package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

// DefaultBaseURL targets SambaNova's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.sambanova.ai/v1"

// DefaultOpenAIModel is the default chat model for the OpenAI-compatible
// backend.
const DefaultOpenAIModel = "DeepSeek-V3-0324"

// OpenAIConfig configures the OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint. A
// circuit breaker sits in front of the call so a persistently failing
// endpoint turns into fast unit failures instead of slow-burning the whole
// batch through retries.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	breaker *gobreaker.CircuitBreaker
}

// NewOpenAIClient creates a client for the configured endpoint.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = DefaultBaseURL
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "translation-provider",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		breaker: breaker,
	}
}

// Name implements Provider.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Translate implements Provider.
func (c *OpenAIClient) Translate(ctx context.Context, req Request) (*Result, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("provider circuit open: %w", err)
		}
		return nil, err
	}
	return out.(*Result), nil
}

func (c *OpenAIClient) complete(ctx context.Context, req Request) (*Result, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: 0.7,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		if isRateLimit(err) {
			return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completion returned")
	}

	result, err := parseResult(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	result.TokensUsed = resp.Usage.TotalTokens
	return result, nil
}

func isRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
