package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is the default model for the Gemini backend.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiClient talks to the Gemini API with an enforced response schema.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed provider.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	return &GeminiClient{client: client, model: model}, nil
}

// Name implements Provider.
func (c *GeminiClient) Name() string {
	return "gemini"
}

// responseSchema mirrors the Result shape. The schema is advisory: the
// response is still re-parsed defensively.
var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"translated_text": {Type: genai.TypeString},
		"new_terms": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"original_term":       {Type: genai.TypeString},
					"english_translation": {Type: genai.TypeString},
				},
				Required: []string{"original_term", "english_translation"},
			},
		},
	},
	Required: []string{"translated_text"},
}

// Translate implements Provider.
func (c *GeminiClient) Translate(ctx context.Context, req Request) (*Result, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.User),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    responseSchema,
			Temperature:       genai.Ptr[float32](0.7),
		})
	if err != nil {
		if isGeminiRateLimit(err) {
			return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return nil, fmt.Errorf("generate content failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("no content returned")
	}

	result, err := parseResult(text)
	if err != nil {
		return nil, err
	}
	if resp.UsageMetadata != nil {
		result.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return result, nil
}

func isGeminiRateLimit(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	// The SDK does not always surface a typed error.
	return strings.Contains(err.Error(), "429")
}
