package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tabchat-ai/tabchat-engine/pkg/apperrors"
	"github.com/tabchat-ai/tabchat-engine/pkg/database"
	"github.com/tabchat-ai/tabchat-engine/pkg/sql"
)

type fakeGenerator struct {
	sql   string
	err   error
	calls int
}

func (f *fakeGenerator) GenerateSQL(ctx context.Context, question string) (string, error) {
	f.calls++
	return f.sql, f.err
}

type fakeSynthesizer struct {
	answer string
	err    error
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, question, sqlQuery string, result *database.QueryResult) (string, error) {
	return f.answer, f.err
}

type fakeExecutor struct {
	fn      func(query string) (*database.QueryResult, error)
	queries []string
}

func (f *fakeExecutor) Execute(ctx context.Context, query string) (*database.QueryResult, error) {
	f.queries = append(f.queries, query)
	return f.fn(query)
}

type countingProvisioner struct {
	calls int
	err   error
}

func (c *countingProvisioner) Provision(ctx context.Context) error {
	c.calls++
	return c.err
}

func rowsResult(columns []string, rows []map[string]any) *database.QueryResult {
	cols := 0
	if len(columns) > 0 {
		cols = len(columns)
	}
	return &database.QueryResult{
		Columns:  columns,
		Rows:     rows,
		RowCount: len(rows),
		ColCount: cols,
	}
}

func newTestPipeline(gen *fakeGenerator, syn *fakeSynthesizer, exec *fakeExecutor, prov *countingProvisioner) Pipeline {
	return NewPipeline(gen, syn, exec, prov, nil, zap.NewNop())
}

func TestPipelineAskSuccess(t *testing.T) {
	gen := &fakeGenerator{sql: "SELECT name FROM clients"}
	syn := &fakeSynthesizer{answer: "There are two clients."}
	exec := &fakeExecutor{fn: func(query string) (*database.QueryResult, error) {
		return rowsResult([]string{"name"}, []map[string]any{
			{"name": "Acme Corp"},
			{"name": "TechStart Inc"},
		}), nil
	}}
	prov := &countingProvisioner{}

	p := newTestPipeline(gen, syn, exec, prov)

	result, err := p.Ask(context.Background(), "List all clients")
	require.NoError(t, err)

	assert.Equal(t, "List all clients", result.Question)
	assert.Equal(t, "SELECT name FROM clients", result.SQLQuery)
	assert.Equal(t, "There are two clients.", result.Answer)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, 1, result.ColCount)
	assert.Empty(t, result.Error)
	assert.True(t, result.Succeeded())
	assert.Equal(t, sql.QueryTypeSelect, result.Analysis.QueryType)
	assert.Nil(t, result.Intermediate)
	assert.GreaterOrEqual(t, result.ResponseTime, 0.0)

	stats := p.Stats()
	assert.Equal(t, 1, stats.TotalQueries)
	assert.Equal(t, 1, stats.SuccessfulQueries)
	assert.Equal(t, 0, stats.FailedQueries)
	require.Len(t, stats.QueryHistory, 1)
	require.NotNil(t, stats.LastQuery)
	assert.True(t, stats.LastQuery.Success)
	assert.Equal(t, "SELECT name FROM clients", stats.LastQuery.SQLQuery)
	assert.Equal(t, 1, prov.calls)
}

func TestPipelineAggregationFetchesIntermediate(t *testing.T) {
	const mainSQL = "SELECT client_id, COUNT(*) FROM invoices GROUP BY client_id"
	const preSQL = "SELECT * FROM invoices LIMIT 100"

	gen := &fakeGenerator{sql: mainSQL}
	syn := &fakeSynthesizer{answer: "Each client has one invoice."}
	exec := &fakeExecutor{fn: func(query string) (*database.QueryResult, error) {
		if query == preSQL {
			return rowsResult([]string{"invoice_id", "client_id"}, []map[string]any{
				{"invoice_id": "INV-001", "client_id": "C-001"},
				{"invoice_id": "INV-002", "client_id": "C-002"},
			}), nil
		}
		return rowsResult([]string{"client_id", "COUNT(*)"}, []map[string]any{
			{"client_id": "C-001", "COUNT(*)": int64(1)},
			{"client_id": "C-002", "COUNT(*)": int64(1)},
		}), nil
	}}

	p := newTestPipeline(gen, syn, exec, &countingProvisioner{})

	result, err := p.Ask(context.Background(), "How many invoices per client?")
	require.NoError(t, err)

	// Drill-down runs before the main query.
	require.Equal(t, []string{preSQL, mainSQL}, exec.queries)

	require.NotNil(t, result.Intermediate)
	assert.Equal(t, preSQL, result.Intermediate.Query)
	assert.Equal(t, 2, result.Intermediate.RowCount)
	assert.Equal(t, sql.QueryTypeAggregation, result.Analysis.QueryType)
}

func TestPipelineIntermediateFailureIsBestEffort(t *testing.T) {
	const mainSQL = "SELECT client_id, SUM(total_amount) FROM invoices GROUP BY client_id"

	gen := &fakeGenerator{sql: mainSQL}
	syn := &fakeSynthesizer{answer: "ok"}
	exec := &fakeExecutor{fn: func(query string) (*database.QueryResult, error) {
		if query != mainSQL {
			return nil, apperrors.NewExecutionError(query, errors.New("disk I/O error"))
		}
		return rowsResult([]string{"client_id", "SUM(total_amount)"}, []map[string]any{
			{"client_id": "C-001", "SUM(total_amount)": 1800.0},
		}), nil
	}}

	p := newTestPipeline(gen, syn, exec, &countingProvisioner{})

	result, err := p.Ask(context.Background(), "Total billed per client?")
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Nil(t, result.Intermediate)
	assert.Equal(t, 1, result.RowCount)
}

func TestPipelineEmptyResultReportsZeroColumns(t *testing.T) {
	gen := &fakeGenerator{sql: "SELECT name, country FROM clients WHERE country = 'FR'"}
	syn := &fakeSynthesizer{answer: "No matching data was found."}
	exec := &fakeExecutor{fn: func(query string) (*database.QueryResult, error) {
		// The cursor still reports the select-list width on empty results.
		return rowsResult([]string{"name", "country"}, nil), nil
	}}

	p := newTestPipeline(gen, syn, exec, &countingProvisioner{})

	result, err := p.Ask(context.Background(), "Any clients in France?")
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, 0, result.RowCount)
	assert.Equal(t, 0, result.ColCount)
}

func TestPipelineExecutionErrorYieldsStructuredResult(t *testing.T) {
	gen := &fakeGenerator{sql: "SELECT bogus FROM clients"}
	syn := &fakeSynthesizer{answer: "unused"}
	exec := &fakeExecutor{fn: func(query string) (*database.QueryResult, error) {
		return nil, apperrors.NewExecutionError(query, errors.New("no such column: bogus"))
	}}

	p := newTestPipeline(gen, syn, exec, &countingProvisioner{})

	result, err := p.Ask(context.Background(), "What is bogus?")
	require.NoError(t, err)

	assert.NotEmpty(t, result.Error)
	assert.Contains(t, result.Error, "no such column")
	assert.Contains(t, result.Answer, "Error executing query:")
	assert.False(t, result.Succeeded())
	assert.Nil(t, result.Results)
	assert.Equal(t, "SELECT bogus FROM clients", result.SQLQuery)

	stats := p.Stats()
	assert.Equal(t, 1, stats.TotalQueries)
	assert.Equal(t, 0, stats.SuccessfulQueries)
	assert.Equal(t, 1, stats.FailedQueries)
	require.NotNil(t, stats.LastQuery)
	assert.False(t, stats.LastQuery.Success)
}

func TestPipelineRejectsNonReadOnlySQL(t *testing.T) {
	gen := &fakeGenerator{sql: "DROP TABLE clients"}
	syn := &fakeSynthesizer{answer: "unused"}
	exec := &fakeExecutor{fn: func(query string) (*database.QueryResult, error) {
		t.Fatalf("executor must not run for rejected SQL, got %q", query)
		return nil, nil
	}}

	p := newTestPipeline(gen, syn, exec, &countingProvisioner{})

	result, err := p.Ask(context.Background(), "Delete everything")
	require.NoError(t, err)

	assert.False(t, result.Succeeded())
	assert.Contains(t, result.Error, "read-only")
	assert.Empty(t, exec.queries)
}

func TestPipelineGeneratorErrorPropagates(t *testing.T) {
	genErr := errors.New("llm unavailable")
	gen := &fakeGenerator{err: genErr}
	exec := &fakeExecutor{fn: func(query string) (*database.QueryResult, error) {
		return rowsResult(nil, nil), nil
	}}

	p := newTestPipeline(gen, &fakeSynthesizer{}, exec, &countingProvisioner{})

	result, err := p.Ask(context.Background(), "Anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, genErr)
	assert.Nil(t, result)

	// Propagated errors still produce a failure record so the counters
	// stay consistent with the history length.
	stats := p.Stats()
	assert.Equal(t, 1, stats.TotalQueries)
	assert.Equal(t, 1, stats.FailedQueries)
	require.Len(t, stats.QueryHistory, 1)
	assert.False(t, stats.QueryHistory[0].Success)
	assert.Empty(t, stats.QueryHistory[0].SQLQuery)
}

func TestPipelineSynthesizerErrorPropagates(t *testing.T) {
	gen := &fakeGenerator{sql: "SELECT name FROM clients"}
	syn := &fakeSynthesizer{err: errors.New("llm unavailable")}
	exec := &fakeExecutor{fn: func(query string) (*database.QueryResult, error) {
		return rowsResult([]string{"name"}, []map[string]any{{"name": "Acme Corp"}}), nil
	}}

	p := newTestPipeline(gen, syn, exec, &countingProvisioner{})

	result, err := p.Ask(context.Background(), "List clients")
	require.Error(t, err)
	assert.Nil(t, result)

	// The failure record keeps the SQL that was actually executed.
	stats := p.Stats()
	require.NotNil(t, stats.LastQuery)
	assert.Equal(t, "SELECT name FROM clients", stats.LastQuery.SQLQuery)
	assert.False(t, stats.LastQuery.Success)
}

func TestPipelineInitializeIsIdempotent(t *testing.T) {
	prov := &countingProvisioner{}
	gen := &fakeGenerator{sql: "SELECT name FROM clients"}
	exec := &fakeExecutor{fn: func(query string) (*database.QueryResult, error) {
		return rowsResult([]string{"name"}, nil), nil
	}}

	p := newTestPipeline(gen, &fakeSynthesizer{answer: "none"}, exec, prov)

	require.NoError(t, p.Initialize(context.Background()))
	require.NoError(t, p.Initialize(context.Background()))

	_, err := p.Ask(context.Background(), "List clients")
	require.NoError(t, err)

	assert.Equal(t, 1, prov.calls)
}

func TestPipelineInitializeFailurePropagates(t *testing.T) {
	prov := &countingProvisioner{err: apperrors.ErrStoreUnavailable}

	p := newTestPipeline(&fakeGenerator{}, &fakeSynthesizer{}, &fakeExecutor{fn: nil}, prov)

	err := p.Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)

	// A failed Provision must not latch the initialized flag.
	require.Error(t, p.Initialize(context.Background()))
	assert.Equal(t, 2, prov.calls)
}

func TestPipelineStatsEmpty(t *testing.T) {
	p := newTestPipeline(&fakeGenerator{}, &fakeSynthesizer{}, &fakeExecutor{}, &countingProvisioner{})

	stats := p.Stats()
	assert.Equal(t, 0, stats.TotalQueries)
	assert.Equal(t, 0.0, stats.AvgResponseTime)
	assert.Empty(t, stats.QueryHistory)
	assert.Nil(t, stats.LastQuery)
}

func TestPipelineStatsInvariants(t *testing.T) {
	gen := &fakeGenerator{sql: "SELECT name FROM clients"}
	failNext := false
	exec := &fakeExecutor{fn: func(query string) (*database.QueryResult, error) {
		if failNext {
			return nil, apperrors.NewExecutionError(query, errors.New("boom"))
		}
		return rowsResult([]string{"name"}, []map[string]any{{"name": "Acme Corp"}}), nil
	}}

	p := newTestPipeline(gen, &fakeSynthesizer{answer: "ok"}, exec, &countingProvisioner{})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := p.Ask(ctx, "List clients")
		require.NoError(t, err)
	}
	failNext = true
	for i := 0; i < 2; i++ {
		_, err := p.Ask(ctx, "List clients")
		require.NoError(t, err)
	}

	stats := p.Stats()
	assert.Equal(t, 5, stats.TotalQueries)
	assert.Equal(t, 3, stats.SuccessfulQueries)
	assert.Equal(t, 2, stats.FailedQueries)
	assert.Equal(t, stats.TotalQueries, stats.SuccessfulQueries+stats.FailedQueries)
	assert.Len(t, stats.QueryHistory, stats.TotalQueries)
	assert.InDelta(t, stats.TotalResponseTime/5, stats.AvgResponseTime, 1e-9)
}
