package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tienda-lubbi/mirador/pkg/config"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// openRouterClient talks to OpenRouter through its OpenAI-compatible API.
type openRouterClient struct {
	client *openai.Client
	model  string
}

func newOpenRouterClient(cfg *config.Config) *openRouterClient {
	clientCfg := openai.DefaultConfig(cfg.OpenRouterKey)
	clientCfg.BaseURL = openRouterBaseURL
	return &openRouterClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.OpenRouterModel,
	}
}

func (c *openRouterClient) Provider() string { return config.ProviderOpenRouter }

func (c *openRouterClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			if apiErr.HTTPStatusCode == 429 || isRateLimitMessage(apiErr.Message) {
				return "", fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
			}
		}
		return "", fmt.Errorf("openrouter request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openrouter returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
