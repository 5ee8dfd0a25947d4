package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tabchat-ai/tabchat-engine/pkg/llm"
	"github.com/tabchat-ai/tabchat-engine/pkg/logging"
	"github.com/tabchat-ai/tabchat-engine/pkg/models"
	"github.com/tabchat-ai/tabchat-engine/pkg/prompts"
)

// SQLGenerator turns a natural-language question into a SQL query.
type SQLGenerator interface {
	// GenerateSQL builds a schema-grounded prompt and returns the LLM's
	// SQL with Markdown fences stripped. The SQL is not validated here;
	// validation is deferred to execution.
	GenerateSQL(ctx context.Context, question string) (string, error)
}

type sqlGenerator struct {
	client llm.LLMClient
	schema SchemaService
	logger *zap.Logger
}

// NewSQLGenerator creates a SQL generator backed by the given LLM client.
func NewSQLGenerator(client llm.LLMClient, schema SchemaService, logger *zap.Logger) SQLGenerator {
	return &sqlGenerator{client: client, schema: schema, logger: logger}
}

func (g *sqlGenerator) GenerateSQL(ctx context.Context, question string) (string, error) {
	g.logger.Info("Generating SQL query")

	schema, err := g.schema.DescribeSchema(ctx)
	if err != nil {
		return "", fmt.Errorf("generate sql: %w", err)
	}

	systemMessage := prompts.BuildSQLGenerationPrompt(schema, tableDescriptionList())

	raw, err := g.client.Complete(ctx, systemMessage, question)
	if err != nil {
		return "", fmt.Errorf("generate sql: %w", err)
	}

	sql := stripCodeFences(raw)

	g.logger.Info("Generated SQL", zap.String("sql", logging.Truncate(sql, logging.MaxSQLLogLength)))

	return sql, nil
}

// tableDescriptionList renders the business meaning of each table as a
// bullet list for the prompt.
func tableDescriptionList() string {
	lines := make([]string, len(models.TableDescriptions))
	for i, td := range models.TableDescriptions {
		lines[i] = fmt.Sprintf("- %s: %s", td.Name, td.Description)
	}
	return strings.Join(lines, "\n")
}

// stripCodeFences removes Markdown code-fence artifacts the LLM tends to
// wrap SQL in, plus surrounding whitespace.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```sql", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
