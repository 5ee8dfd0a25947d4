package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tabchat-ai/tabchat-engine/pkg/database"
)

type fakeSampler struct {
	samples map[string]*database.TableSample
	limits  []int
}

func (f *fakeSampler) Sample(ctx context.Context, table string, limit int) (*database.TableSample, error) {
	f.limits = append(f.limits, limit)
	sample, ok := f.samples[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	return sample, nil
}

func TestDescribeSchema(t *testing.T) {
	sampler := &fakeSampler{samples: map[string]*database.TableSample{
		"clients": {
			Columns: []database.ColumnInfo{
				{Name: "client_id", Type: "TEXT"},
				{Name: "name", Type: "TEXT"},
			},
			Rows: []map[string]any{
				{"client_id": "C-001", "name": "Acme Corp"},
			},
		},
		"invoices": {
			Columns: []database.ColumnInfo{
				{Name: "invoice_id", Type: "TEXT"},
				{Name: "total_amount", Type: "REAL"},
			},
			Rows: []map[string]any{
				{"invoice_id": "INV-001", "total_amount": 1800.0},
			},
		},
	}}

	svc := NewSchemaService(sampler, []string{"clients", "invoices"}, zap.NewNop())

	schema, err := svc.DescribeSchema(context.Background())
	require.NoError(t, err)

	assert.Contains(t, schema, "Table: clients")
	assert.Contains(t, schema, "Columns: client_id (TEXT), name (TEXT)")
	assert.Contains(t, schema, "Table: invoices")
	assert.Contains(t, schema, "total_amount (REAL)")
	assert.Contains(t, schema, "Acme Corp")
	assert.Contains(t, schema, "1800")

	// Sections are separated by a blank line, in table order.
	assert.Regexp(t, `(?s)Table: clients.*\n\nTable: invoices`, schema)

	// Samples are capped at the fixed row count.
	assert.Equal(t, []int{3, 3}, sampler.limits)
}

func TestDescribeSchemaSamplerError(t *testing.T) {
	sampler := &fakeSampler{samples: map[string]*database.TableSample{}}
	svc := NewSchemaService(sampler, []string{"missing"}, zap.NewNop())

	_, err := svc.DescribeSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestRenderRowsAlignment(t *testing.T) {
	out := RenderRows(
		[]string{"name", "total"},
		[]map[string]any{
			{"name": "Acme Corp", "total": 1800.0},
			{"name": "TechStart Inc", "total": nil},
		},
	)

	assert.Equal(t,
		"name           total\n"+
			"Acme Corp      1800\n"+
			"TechStart Inc  NULL",
		out)
}

func TestRenderRowsValueFormatting(t *testing.T) {
	out := RenderRows(
		[]string{"v"},
		[]map[string]any{
			{"v": int64(42)},
			{"v": 0.15},
			{"v": []byte("raw")},
			{"v": nil},
		},
	)

	assert.Contains(t, out, "42")
	assert.Contains(t, out, "0.15")
	assert.Contains(t, out, "raw")
	assert.Contains(t, out, "NULL")
}
