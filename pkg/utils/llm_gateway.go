package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"glucoach/internal/models/db_models"
)

var (
	ErrUpstreamTimeout     = errors.New("llm upstream timeout")
	ErrUpstreamRateLimited = errors.New("llm upstream rate limited")
	ErrUpstreamError       = errors.New("llm upstream error")
)

type ChatMessage struct {
	Role    db_models.Role
	Content string
}

type Completion struct {
	Text   string
	Tokens *int
}

// LLMClient is a single chat-completion call against one provider.
type LLMClient interface {
	Complete(ctx context.Context, messages []ChatMessage, model string) (*Completion, error)
}

// LLMGateway is the client the coach talks to: bounded in time, errors
// reduced to the three upstream kinds, and plain-text output.
type LLMGateway interface {
	Complete(ctx context.Context, messages []ChatMessage, model string) (*Completion, error)
}

type llmGateway struct {
	client  LLMClient
	timeout time.Duration
}

func NewLLMGateway(client LLMClient, timeout time.Duration) LLMGateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &llmGateway{client: client, timeout: timeout}
}

func (g *llmGateway) Complete(ctx context.Context, messages []ChatMessage, model string) (*Completion, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.client.Complete(callCtx, messages, model)
	if err != nil {
		return nil, classifyUpstreamError(callCtx, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: empty completion", ErrUpstreamError)
	}

	text := strings.TrimSpace(StripMarkdown(res.Text))
	if text == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrUpstreamError)
	}
	return &Completion{Text: text, Tokens: res.Tokens}, nil
}

func classifyUpstreamError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrUpstreamTimeout), errors.Is(err, ErrUpstreamRateLimited), errors.Is(err, ErrUpstreamError):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrUpstreamError, err)
	}
}

// upstreamErrorForStatus maps a provider HTTP status to an upstream kind.
func upstreamErrorForStatus(status int, err error) error {
	switch status {
	case 429:
		return fmt.Errorf("%w: %v", ErrUpstreamRateLimited, err)
	case 408, 504:
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrUpstreamError, err)
	}
}
