package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"glucoach/internal/models/db_models"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiChatClient implements LLMClient using Google's Gemini models
type GeminiChatClient struct {
	client *genai.Client
}

func NewGeminiChatClient(ctx context.Context, apiKey string) (*GeminiChatClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiChatClient{client: client}, nil
}

func (c *GeminiChatClient) Complete(ctx context.Context, messages []ChatMessage, model string) (*Completion, error) {
	if len(messages) == 0 || messages[len(messages)-1].Role != db_models.RoleUser {
		return nil, fmt.Errorf("%w: conversation must end with a user message", ErrUpstreamError)
	}

	m := c.client.GenerativeModel(model)
	system, history := geminiHistory(messages[:len(messages)-1])
	if len(system) > 0 {
		m.SystemInstruction = &genai.Content{Parts: system}
	}

	cs := m.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(messages[len(messages)-1].Content))
	if err != nil {
		return nil, classifyGeminiError(ctx, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: no content generated by Gemini", ErrUpstreamError)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}

	out := &Completion{Text: b.String()}
	if resp.UsageMetadata != nil && resp.UsageMetadata.CandidatesTokenCount > 0 {
		tokens := int(resp.UsageMetadata.CandidatesTokenCount)
		out.Tokens = &tokens
	}
	return out, nil
}

func (c *GeminiChatClient) Close() error {
	return c.client.Close()
}

// geminiHistory splits system text from the chat turns. Gemini wants the
// history to open with a user turn and alternate, so consecutive turns of
// one role are merged and a leading model turn is folded into the system
// instruction.
func geminiHistory(messages []ChatMessage) ([]genai.Part, []*genai.Content) {
	var system []genai.Part
	var history []*genai.Content

	for _, msg := range messages {
		if msg.Role == db_models.RoleSystem {
			system = append(system, genai.Text(msg.Content))
			continue
		}
		role := "user"
		if msg.Role == db_models.RoleAssistant {
			role = "model"
		}
		if len(history) == 0 && role == "model" {
			system = append(system, genai.Text(msg.Content))
			continue
		}
		if n := len(history); n > 0 && history[n-1].Role == role {
			history[n-1].Parts = append(history[n-1].Parts, genai.Text(msg.Content))
			continue
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}

	// the new user message is sent separately, so history must end on a model turn
	if n := len(history); n > 0 && history[n-1].Role == "user" {
		history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text("Understood.")}})
	}
	return system, history
}

func classifyGeminiError(ctx context.Context, err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return upstreamErrorForStatus(gErr.Code, err)
	}
	var coded interface{ HTTPCode() int }
	if errors.As(err, &coded) && coded.HTTPCode() > 0 {
		return upstreamErrorForStatus(coded.HTTPCode(), err)
	}
	return classifyUpstreamError(ctx, err)
}
