package llm

import (
	"context"
)

// MockLLMClient is a configurable mock for testing LLM functionality.
// Set the function field to control behavior in tests.
type MockLLMClient struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, returns empty string and nil error.
	CompleteFunc func(ctx context.Context, systemMessage string, userMessage string) (string, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Call tracking for verification
	CompleteCalls int

	// LastSystemMessage and LastUserMessage record the most recent call's
	// arguments for prompt-content assertions.
	LastSystemMessage string
	LastUserMessage   string
}

// NewMockLLMClient creates a new mock with sensible defaults.
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{Model: "mock-model"}
}

// Complete implements LLMClient.
func (m *MockLLMClient) Complete(ctx context.Context, systemMessage string, userMessage string) (string, error) {
	m.CompleteCalls++
	m.LastSystemMessage = systemMessage
	m.LastUserMessage = userMessage
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, systemMessage, userMessage)
	}
	return "", nil
}

// GetModel implements LLMClient.
func (m *MockLLMClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// Reset clears call tracking.
func (m *MockLLMClient) Reset() {
	m.CompleteCalls = 0
	m.LastSystemMessage = ""
	m.LastUserMessage = ""
}
