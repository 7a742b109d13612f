// Package llm provides the language-model clients used by the router,
// planner, and composer: a native Gemini REST client and an
// OpenAI-compatible client for OpenRouter, behind one interface.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tienda-lubbi/mirador/pkg/config"
)

// Sentinel errors surfaced by providers.
var (
	// ErrRateLimited marks quota/429 failures so callers can back off or
	// degrade to heuristics.
	ErrRateLimited = errors.New("llm rate limited")

	// ErrNotConfigured is returned when the selected provider has no
	// credentials. Callers treat it as "heuristics only".
	ErrNotConfigured = errors.New("llm provider not configured")
)

// Request is one completion request.
type Request struct {
	System      string
	User        string
	Temperature float32
	// MaxTokens of 0 lets the provider default apply.
	MaxTokens int
}

// Client is the provider-agnostic completion interface.
type Client interface {
	// Complete returns the model's text response.
	Complete(ctx context.Context, req Request) (string, error)

	// Provider returns the provider identifier for logging.
	Provider() string
}

// New builds the client selected by LLM_PROVIDER.
func New(cfg *config.Config) (Client, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenRouter:
		if cfg.OpenRouterKey == "" {
			return nil, fmt.Errorf("%w: OPENROUTER_API_KEY is empty", ErrNotConfigured)
		}
		return newOpenRouterClient(cfg), nil
	case config.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("%w: GEMINI_API_KEY is empty", ErrNotConfigured)
		}
		return newGeminiClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}

var (
	fencedJSONRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	bareJSONRe   = regexp.MustCompile(`\{[\s\S]*\}`)
)

// CompleteJSON runs a completion and unmarshals the response into out.
// Models often wrap JSON in markdown fences or prose; both are stripped.
func CompleteJSON(ctx context.Context, c Client, req Request, out any) error {
	text, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}

	content := strings.TrimSpace(text)
	if m := fencedJSONRe.FindStringSubmatch(content); m != nil {
		content = strings.TrimSpace(m[1])
	}
	if m := bareJSONRe.FindString(content); m != "" {
		content = m
	}

	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("failed to parse model JSON response: %w", err)
	}
	return nil
}

// isRateLimitMessage detects quota errors from provider message text.
func isRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "429") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "resource_exhausted") ||
		strings.Contains(lower, "resource exhausted") ||
		strings.Contains(lower, "quota")
}
