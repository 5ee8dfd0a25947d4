// Package services contains the query pipeline: schema introspection, SQL
// generation, answer synthesis, and the orchestrator composing them.
package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tabchat-ai/tabchat-engine/pkg/database"
)

// sampleRowCount is how many rows of each table are shown to the LLM.
const sampleRowCount = 3

// TableSampler fetches a typed sample of a known table.
type TableSampler interface {
	Sample(ctx context.Context, table string, limit int) (*database.TableSample, error)
}

// SchemaService renders the store's current structure into LLM grounding
// context.
type SchemaService interface {
	// DescribeSchema returns a textual summary of every known table:
	// columns with declared types plus a small row sample. The summary is
	// built fresh on every call so re-ingestion is always reflected.
	DescribeSchema(ctx context.Context) (string, error)
}

type schemaService struct {
	sampler TableSampler
	tables  []string
	logger  *zap.Logger
}

// NewSchemaService creates a schema service over the given tables.
func NewSchemaService(sampler TableSampler, tables []string, logger *zap.Logger) SchemaService {
	return &schemaService{sampler: sampler, tables: tables, logger: logger}
}

func (s *schemaService) DescribeSchema(ctx context.Context) (string, error) {
	blocks := make([]string, 0, len(s.tables))

	for _, table := range s.tables {
		sample, err := s.sampler.Sample(ctx, table, sampleRowCount)
		if err != nil {
			return "", fmt.Errorf("describe %s: %w", table, err)
		}

		colInfo := make([]string, len(sample.Columns))
		columns := make([]string, len(sample.Columns))
		for i, col := range sample.Columns {
			colInfo[i] = fmt.Sprintf("%s (%s)", col.Name, col.Type)
			columns[i] = col.Name
		}

		blocks = append(blocks, fmt.Sprintf("Table: %s\nColumns: %s\nSample rows:\n%s",
			table,
			strings.Join(colInfo, ", "),
			RenderRows(columns, sample.Rows)))
	}

	return strings.Join(blocks, "\n\n"), nil
}
