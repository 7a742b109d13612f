package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tienda-lubbi/mirador/pkg/config"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// geminiClient calls the Gemini generateContent REST API directly.
type geminiClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

func newGeminiClient(cfg *config.Config) *geminiClient {
	return &geminiClient{
		apiKey:  cfg.GeminiAPIKey,
		model:   cfg.GeminiModel,
		baseURL: geminiBaseURL,
		http:    &http.Client{Timeout: cfg.LLMTimeout},
	}
}

func (c *geminiClient) Provider() string { return config.ProviderGemini }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *geminiClient) Complete(ctx context.Context, req Request) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.User}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read gemini response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: %s", ErrRateLimited, retryHint(resp.Header, data))
	}
	if resp.StatusCode != http.StatusOK {
		var parsed geminiResponse
		if json.Unmarshal(data, &parsed) == nil && parsed.Error != nil {
			if isRateLimitMessage(parsed.Error.Status) || isRateLimitMessage(parsed.Error.Message) {
				return "", fmt.Errorf("%w: %s", ErrRateLimited, parsed.Error.Message)
			}
			return "", fmt.Errorf("gemini error %d: %s", parsed.Error.Code, parsed.Error.Message)
		}
		return "", fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var text string
	for _, part := range parsed.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text, nil
}

// retryHint extracts a human-readable retry delay from headers or body.
func retryHint(h http.Header, body []byte) string {
	if ra := h.Get("Retry-After"); ra != "" {
		return fmt.Sprintf("retry in %ss", ra)
	}
	if len(body) > 0 {
		return string(body[:min(len(body), 200)])
	}
	return "no retry hint"
}
