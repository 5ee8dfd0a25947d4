// Package llm provides the narrow text-completion capability the engine
// needs from an LLM provider, with OpenAI and Anthropic implementations.
package llm

import (
	"context"
)

// LLMClient is the capability interface the pipeline depends on. The engine
// only ever sends one system message plus one human message and reads back
// free text, so the surface stays deliberately small. Use this interface
// for dependency injection to enable mocking in tests.
type LLMClient interface {
	// Complete generates a text completion for a system + human message
	// pair. Sampling is deterministic (temperature 0) unless the client
	// was configured otherwise.
	Complete(ctx context.Context, systemMessage string, userMessage string) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Ensure implementations satisfy LLMClient at compile time.
var (
	_ LLMClient = (*OpenAIClient)(nil)
	_ LLMClient = (*AnthropicClient)(nil)
	_ LLMClient = (*MockLLMClient)(nil)
)
