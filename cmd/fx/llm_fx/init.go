package llm_fx

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"glucoach/internal/config"
	"glucoach/pkg/utils"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Provide(
	ProvideLLMClient,
	ProvideLLMGateway)

// ProvideLLMClient creates the chat client for the configured provider.
func ProvideLLMClient(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (utils.LLMClient, error) {
	log.Info("initializing llm client",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model))

	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		return utils.NewOpenAIChatClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, &http.Client{Timeout: cfg.LLM.Timeout}), nil
	case "gemini":
		client, err := utils.NewGeminiChatClient(context.Background(), cfg.LLM.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s. Use 'openai' or 'gemini'", cfg.LLM.Provider)
	}
}

func ProvideLLMGateway(client utils.LLMClient, cfg *config.Config) utils.LLMGateway {
	return utils.NewLLMGateway(client, cfg.LLM.Timeout)
}
