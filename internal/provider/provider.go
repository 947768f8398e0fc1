package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"codeberg.org/ptrkv/fictionflow/internal/glossary"
)

// ErrRateLimited marks an explicit rate-limit signal from the provider. It
// is the only transient error class: callers back off and retry without
// consuming a translation attempt.
var ErrRateLimited = errors.New("provider rate limited")

// Request is one translation submission.
type Request struct {
	System string
	User   string
}

// Result is the structured translation response.
type Result struct {
	TranslatedText string          `json:"translated_text"`
	NewTerms       []glossary.Term `json:"new_terms"`
	// TokensUsed is the provider-reported total, 0 when unreported.
	TokensUsed int `json:"-"`
}

// Provider is the model capability consumed by the unit processor.
type Provider interface {
	// Translate submits the prompts and returns the parsed result. Errors
	// wrapping ErrRateLimited are transient; everything else is fatal for
	// the current attempt.
	Translate(ctx context.Context, req Request) (*Result, error)
	// Name identifies the backend for logging.
	Name() string
}

// parseResult decodes the model's JSON payload. Models occasionally wrap the
// object in a markdown code fence despite instructions, and new_terms is
// frequently omitted; both are tolerated.
func parseResult(raw string) (*Result, error) {
	cleaned := stripCodeFence(raw)

	var result Result
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("response is not the expected JSON object: %w", err)
	}
	if result.NewTerms == nil {
		result.NewTerms = []glossary.Term{}
	}
	return &result, nil
}

func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
