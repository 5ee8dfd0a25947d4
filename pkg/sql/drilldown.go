package sql

import (
	"fmt"
	"regexp"
	"strings"
)

// PreAggregationRowCap bounds the drill-down dataset so auditing an
// aggregate never pulls an unbounded row set.
const PreAggregationRowCap = 100

// fromClausePattern captures the FROM clause up to the first GROUP BY,
// ORDER BY, LIMIT, terminating semicolon, or end of text. (?is) makes the
// match case-insensitive and lets the clause span multiple lines.
var fromClausePattern = regexp.MustCompile(`(?is)FROM\s+(.+?)(?:\sGROUP BY|\sORDER BY|\sLIMIT|;|$)`)

var whitespacePattern = regexp.MustCompile(`\s+`)

// DerivePreAggregation builds a non-aggregated query over the same source
// rows as an aggregation query: SELECT * over the original FROM clause,
// capped at PreAggregationRowCap rows.
//
// The second return value is false when no drill-down query can be derived
// (the query has no GROUP BY, or no FROM clause was found). Derivation is
// best-effort; callers degrade to "no intermediate data" and log, they do
// not fail the request.
func DerivePreAggregation(query string) (string, bool) {
	if !strings.Contains(strings.ToUpper(query), "GROUP BY") {
		return "", false
	}

	match := fromClausePattern.FindStringSubmatch(query)
	if match == nil {
		return "", false
	}

	fromClause := strings.TrimSpace(match[1])
	if fromClause == "" {
		return "", false
	}

	derived := fmt.Sprintf("SELECT * FROM %s LIMIT %d", fromClause, PreAggregationRowCap)
	return whitespacePattern.ReplaceAllString(derived, " "), true
}
