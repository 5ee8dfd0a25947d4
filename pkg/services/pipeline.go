package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tabchat-ai/tabchat-engine/pkg/apperrors"
	"github.com/tabchat-ai/tabchat-engine/pkg/database"
	"github.com/tabchat-ai/tabchat-engine/pkg/logging"
	"github.com/tabchat-ai/tabchat-engine/pkg/metrics"
	"github.com/tabchat-ai/tabchat-engine/pkg/models"
	"github.com/tabchat-ai/tabchat-engine/pkg/sql"
)

// Provisioner provisions the backing store schema. Implemented by
// database.Provisioner; tests inject a counting fake.
type Provisioner interface {
	Provision(ctx context.Context) error
}

// QueryExecutor executes SQL against the backing store.
type QueryExecutor interface {
	Execute(ctx context.Context, query string) (*database.QueryResult, error)
}

// Pipeline sequences SQL generation, analysis, drill-down derivation,
// execution, and answer synthesis, and records per-query statistics.
type Pipeline interface {
	// Initialize provisions the backing store if needed. Idempotent and
	// safe under concurrent callers.
	Initialize(ctx context.Context) error

	// Ask processes one natural-language question. A store rejection of
	// the generated SQL yields a Result with Error set; any other failure
	// is returned as an error after the attempt has been recorded.
	Ask(ctx context.Context, question string) (*models.Result, error)

	// Stats returns a snapshot of the running aggregates and history.
	Stats() models.Stats
}

type pipeline struct {
	generator   SQLGenerator
	synthesizer AnswerSynthesizer
	executor    QueryExecutor
	provisioner Provisioner
	metrics     *metrics.QueryMetrics
	logger      *zap.Logger

	initMu      sync.Mutex
	initialized bool

	// mu guards the statistics below. Concurrent sessions share one
	// pipeline instance, so every read-modify-write goes through it.
	mu                sync.Mutex
	totalQueries      int
	successfulQueries int
	failedQueries     int
	totalResponseTime float64
	history           []models.QueryRecord
	lastQuery         *models.QueryRecord
}

// NewPipeline creates the orchestrator. metrics may be nil to disable
// Prometheus instrumentation.
func NewPipeline(
	generator SQLGenerator,
	synthesizer AnswerSynthesizer,
	executor QueryExecutor,
	provisioner Provisioner,
	queryMetrics *metrics.QueryMetrics,
	logger *zap.Logger,
) Pipeline {
	return &pipeline{
		generator:   generator,
		synthesizer: synthesizer,
		executor:    executor,
		provisioner: provisioner,
		metrics:     queryMetrics,
		logger:      logger.Named("pipeline"),
	}
}

func (p *pipeline) Initialize(ctx context.Context) error {
	p.initMu.Lock()
	defer p.initMu.Unlock()

	if p.initialized {
		return nil
	}

	p.logger.Info("Initializing pipeline")

	if err := p.provisioner.Provision(ctx); err != nil {
		return fmt.Errorf("provision store: %w", err)
	}

	p.initialized = true
	p.logger.Info("Pipeline ready")

	return nil
}

func (p *pipeline) Ask(ctx context.Context, question string) (*models.Result, error) {
	if err := p.Initialize(ctx); err != nil {
		return nil, err
	}

	p.logger.Info("Processing query", zap.String("question", logging.Truncate(question, 100)))
	start := time.Now()

	result, err := p.executeAndAnswer(ctx, question)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		// The attempt was counted as started, so it is recorded as a
		// failure even though the error propagates to the caller.
		p.record(question, elapsed, result, false)
		p.logger.Error("Query failed", zap.Error(err))
		return nil, err
	}

	result.ResponseTime = elapsed
	p.record(question, elapsed, result, result.Succeeded())

	p.logger.Info("Response generated",
		zap.Float64("elapsed_seconds", elapsed),
		zap.Bool("success", result.Succeeded()))

	return result, nil
}

// executeAndAnswer runs one full generate/analyze/execute/synthesize
// cycle. A store rejection is folded into the returned Result;
// every other failure is returned as an error alongside whatever partial
// Result context exists for the failure record.
func (p *pipeline) executeAndAnswer(ctx context.Context, question string) (*models.Result, error) {
	sqlQuery, err := p.generator.GenerateSQL(ctx, question)
	if err != nil {
		return nil, err
	}

	analysis := sql.Analyze(sqlQuery, models.TableNames())
	p.logger.Info("Query analysis",
		zap.Int("tables", analysis.TableCount),
		zap.Int("joins", analysis.JoinCount),
		zap.String("type", string(analysis.QueryType)))

	result := &models.Result{
		Question: question,
		SQLQuery: sqlQuery,
		Analysis: analysis,
	}

	validation := sql.ValidateAndNormalize(sqlQuery)
	if validation.Error != nil {
		// Rejected before reaching the store; same shape as a store
		// rejection from the caller's point of view.
		return p.failResult(result, validation.Error), nil
	}
	normalized := validation.NormalizedSQL

	if analysis.QueryType == sql.QueryTypeAggregation {
		p.attachIntermediate(ctx, result, normalized)
	}

	p.logger.Info("Executing SQL query")
	execResult, err := p.executor.Execute(ctx, normalized)
	if err != nil {
		if apperrors.IsExecutionError(err) {
			p.logger.Error("SQL execution error", zap.Error(err))
			return p.failResult(result, err), nil
		}
		return result, err
	}

	result.Results = execResult.Rows
	result.RowCount = execResult.RowCount
	result.ColCount = execResult.ColCount
	// An empty result reports zero columns too, even though the cursor
	// still knows the select-list width.
	if execResult.RowCount == 0 {
		result.ColCount = 0
	}
	p.logger.Info("Query returned rows",
		zap.Int("rows", execResult.RowCount),
		zap.Int("cols", execResult.ColCount))

	answer, err := p.synthesizer.Synthesize(ctx, question, normalized, execResult)
	if err != nil {
		return result, err
	}
	result.Answer = answer

	return result, nil
}

// attachIntermediate derives and executes the pre-aggregation drill-down
// query. Best-effort: failures degrade to "no intermediate data".
func (p *pipeline) attachIntermediate(ctx context.Context, result *models.Result, sqlQuery string) {
	preQuery, ok := sql.DerivePreAggregation(sqlQuery)
	if !ok {
		p.logger.Warn("Could not derive pre-aggregation query",
			zap.String("sql", logging.Truncate(sqlQuery, 80)))
		return
	}

	p.logger.Info("Fetching intermediate results", zap.String("sql", logging.Truncate(preQuery, 80)))

	preResult, err := p.executor.Execute(ctx, preQuery)
	if err != nil {
		p.logger.Warn("Could not fetch intermediate results", zap.Error(err))
		return
	}

	result.Intermediate = &models.Intermediate{
		Query:    preQuery,
		Data:     preResult.Rows,
		RowCount: preResult.RowCount,
		ColCount: preResult.ColCount,
	}

	p.logger.Info("Intermediate results fetched", zap.Int("rows", preResult.RowCount))
}

// failResult folds an execution failure into a structured error result.
// Results/RowCount/ColCount stay absent; callers treat Error as failure.
func (p *pipeline) failResult(result *models.Result, cause error) *models.Result {
	result.Error = cause.Error()
	result.Answer = fmt.Sprintf("Error executing query: %v", cause)
	return result
}

// record appends a history entry and updates the running counters.
// result may be nil when the cycle failed before any SQL was generated.
func (p *pipeline) record(question string, elapsed float64, result *models.Result, success bool) {
	record := models.QueryRecord{
		ID:           uuid.New(),
		Question:     question,
		ResponseTime: elapsed,
		Success:      success,
	}
	if result != nil {
		record.RowCount = result.RowCount
		record.ColCount = result.ColCount
		record.Analysis = result.Analysis
		record.Intermediate = result.Intermediate
		record.SQLQuery = result.SQLQuery
	}

	p.mu.Lock()
	p.totalQueries++
	if success {
		p.successfulQueries++
	} else {
		p.failedQueries++
	}
	p.totalResponseTime += elapsed
	p.history = append(p.history, record)
	p.lastQuery = &record
	p.mu.Unlock()

	if p.metrics != nil {
		status := metrics.StatusFailure
		if success {
			status = metrics.StatusSuccess
		}
		p.metrics.ObserveQuery(status, elapsed)
	}
}

func (p *pipeline) Stats() models.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	avg := 0.0
	if p.totalQueries > 0 {
		avg = p.totalResponseTime / float64(p.totalQueries)
	}

	stats := models.Stats{
		TotalQueries:      p.totalQueries,
		SuccessfulQueries: p.successfulQueries,
		FailedQueries:     p.failedQueries,
		TotalResponseTime: p.totalResponseTime,
		AvgResponseTime:   avg,
		QueryHistory:      append([]models.QueryRecord(nil), p.history...),
	}
	if p.lastQuery != nil {
		last := *p.lastQuery
		stats.LastQuery = &last
	}

	return stats
}
