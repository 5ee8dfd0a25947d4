package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tabchat-ai/tabchat-engine/pkg/database"
	"github.com/tabchat-ai/tabchat-engine/pkg/llm"
	"github.com/tabchat-ai/tabchat-engine/pkg/prompts"
)

// AnswerSynthesizer turns executed query results back into natural language.
type AnswerSynthesizer interface {
	// Synthesize asks the LLM for an answer grounded in the executed SQL
	// and its result rows. The LLM's raw text is returned unmodified;
	// correctness is delegated entirely to the model.
	Synthesize(ctx context.Context, question string, sqlQuery string, result *database.QueryResult) (string, error)
}

type answerSynthesizer struct {
	client llm.LLMClient
	logger *zap.Logger
}

// NewAnswerSynthesizer creates a synthesizer backed by the given LLM client.
func NewAnswerSynthesizer(client llm.LLMClient, logger *zap.Logger) AnswerSynthesizer {
	return &answerSynthesizer{client: client, logger: logger}
}

func (a *answerSynthesizer) Synthesize(ctx context.Context, question string, sqlQuery string, result *database.QueryResult) (string, error) {
	a.logger.Info("Generating natural language answer")

	resultsText := "No results"
	if result != nil && result.RowCount > 0 {
		resultsText = RenderRows(result.Columns, result.Rows)
	}

	userMessage := prompts.BuildAnswerPrompt(question, sqlQuery, resultsText)

	answer, err := a.client.Complete(ctx, prompts.AnswerSystemPrompt(), userMessage)
	if err != nil {
		return "", fmt.Errorf("synthesize answer: %w", err)
	}

	return answer, nil
}
