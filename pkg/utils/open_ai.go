package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"glucoach/internal/models/db_models"
)

// OpenAIChatClient talks to the OpenAI chat completions API or any
// compatible endpoint when baseURL is set.
type OpenAIChatClient struct {
	client *openai.Client
}

func NewOpenAIChatClient(apiKey, baseURL string, httpClient *http.Client) *OpenAIChatClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIChatClient{client: openai.NewClientWithConfig(cfg)}
}

func (c *OpenAIChatClient) Complete(ctx context.Context, messages []ChatMessage, model string) (*Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    openAIRole(m.Role),
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, upstreamErrorForStatus(apiErr.HTTPStatusCode, err)
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return nil, upstreamErrorForStatus(reqErr.HTTPStatusCode, err)
		}
		return nil, classifyUpstreamError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrUpstreamError)
	}

	out := &Completion{Text: resp.Choices[0].Message.Content}
	if resp.Usage.CompletionTokens > 0 {
		tokens := resp.Usage.CompletionTokens
		out.Tokens = &tokens
	}
	return out, nil
}

func openAIRole(r db_models.Role) string {
	switch r {
	case db_models.RoleSystem:
		return openai.ChatMessageRoleSystem
	case db_models.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
