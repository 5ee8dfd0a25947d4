package models

import (
	"github.com/google/uuid"

	"github.com/tabchat-ai/tabchat-engine/pkg/sql"
)

// Result is the composite outcome of one question-answer cycle.
// On execution failure Error is set and Results are absent; callers must
// treat a non-empty Error as failure. RowCount and ColCount always
// serialize so a successful zero-row query keeps its shape.
type Result struct {
	Question     string           `json:"question"`
	SQLQuery     string           `json:"sql_query"`
	Results      []map[string]any `json:"results,omitempty"`
	RowCount     int              `json:"row_count"`
	ColCount     int              `json:"col_count"`
	Answer       string           `json:"answer"`
	Analysis     sql.Analysis     `json:"analysis"`
	Intermediate *Intermediate    `json:"intermediate,omitempty"`
	Error        string           `json:"error,omitempty"`
	ResponseTime float64          `json:"response_time"` // seconds
}

// Succeeded reports whether the cycle completed without an execution error.
func (r *Result) Succeeded() bool {
	return r.Error == ""
}

// Intermediate holds the pre-aggregation drill-down dataset derived for
// aggregation queries, so a summary number can be audited.
type Intermediate struct {
	Query    string           `json:"query"`
	Data     []map[string]any `json:"data"`
	RowCount int              `json:"row_count"`
	ColCount int              `json:"col_count"`
}

// QueryRecord is one completed (or failed) cycle's recorded metadata.
// Records are append-only and never mutated after creation.
type QueryRecord struct {
	ID           uuid.UUID     `json:"id"`
	Question     string        `json:"question"`
	ResponseTime float64       `json:"response_time"`
	Success      bool          `json:"success"`
	RowCount     int           `json:"row_count"`
	ColCount     int           `json:"col_count"`
	Analysis     sql.Analysis  `json:"analysis"`
	Intermediate *Intermediate `json:"intermediate,omitempty"`
	SQLQuery     string        `json:"sql_query"`
}

// Stats is a read-only snapshot of the pipeline's running aggregates.
type Stats struct {
	TotalQueries      int           `json:"total_queries"`
	SuccessfulQueries int           `json:"successful_queries"`
	FailedQueries     int           `json:"failed_queries"`
	TotalResponseTime float64       `json:"total_response_time"`
	AvgResponseTime   float64       `json:"avg_response_time"`
	QueryHistory      []QueryRecord `json:"query_history"`
	LastQuery         *QueryRecord  `json:"last_query,omitempty"`
}
