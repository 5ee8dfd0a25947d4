package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// Supported provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// NewClient creates an LLM client for the configured provider. An empty
// provider defaults to OpenAI, which also covers any OpenAI-compatible
// endpoint via Config.Endpoint.
func NewClient(cfg *Config, logger *zap.Logger) (LLMClient, error) {
	switch cfg.Provider {
	case "", ProviderOpenAI:
		return NewOpenAIClient(cfg, logger)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", cfg.Provider)
	}
}
