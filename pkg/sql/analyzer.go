// Package sql provides static analysis and normalization of generated SQL.
//
// Everything here works on the query text directly; nothing is parsed into
// an AST. The substring heuristics are a deliberate trade-off: a table name
// appearing only inside a string literal or comment will still be counted.
package sql

import "strings"

// QueryType is a coarse classification of a query, used for display and
// for routing aggregation queries to drill-down derivation.
type QueryType string

const (
	QueryTypeAggregation QueryType = "AGGREGATION"
	QueryTypeJoin        QueryType = "JOIN"
	QueryTypeSelect      QueryType = "SELECT"
)

// Analysis is the static classification of a single SQL query.
// It is a pure function of the query text.
type Analysis struct {
	TablesUsed     []string  `json:"tables_used"`
	TableCount     int       `json:"table_count"`
	JoinCount      int       `json:"join_count"`
	HasAggregation bool      `json:"has_aggregation"`
	HasGroupBy     bool      `json:"has_group_by"`
	HasFilter      bool      `json:"has_filter"`
	HasOrder       bool      `json:"has_order"`
	HasLimit       bool      `json:"has_limit"`
	QueryType      QueryType `json:"query_type"`
}

// aggregateFunctions are matched as substrings of the uppercased query.
// The trailing parenthesis avoids matching column names like "account".
var aggregateFunctions = []string{"COUNT(", "SUM(", "AVG(", "MAX(", "MIN("}

// Analyze classifies a SQL query by case-insensitive keyword scanning.
//
// Classification order is a fixed policy: aggregation (any aggregate
// function or GROUP BY) wins over join detection, which wins over plain
// SELECT. Callers depend on this exact priority.
func Analyze(query string, knownTables []string) Analysis {
	upper := strings.ToUpper(query)

	var tables []string
	for _, table := range knownTables {
		if strings.Contains(upper, strings.ToUpper(table)) {
			tables = append(tables, table)
		}
	}

	analysis := Analysis{
		TablesUsed: tables,
		TableCount: len(tables),
		JoinCount:  strings.Count(upper, "JOIN"),
		HasGroupBy: strings.Contains(upper, "GROUP BY"),
		HasFilter:  strings.Contains(upper, "WHERE"),
		HasOrder:   strings.Contains(upper, "ORDER BY"),
		HasLimit:   strings.Contains(upper, "LIMIT"),
	}

	for _, fn := range aggregateFunctions {
		if strings.Contains(upper, fn) {
			analysis.HasAggregation = true
			break
		}
	}

	switch {
	case analysis.HasAggregation || analysis.HasGroupBy:
		analysis.QueryType = QueryTypeAggregation
	case analysis.JoinCount > 0:
		analysis.QueryType = QueryTypeJoin
	default:
		analysis.QueryType = QueryTypeSelect
	}

	return analysis
}
