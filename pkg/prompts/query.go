// Package prompts builds the LLM prompts used by the query pipeline.
package prompts

import (
	"fmt"
)

// sqlGenerationTemplate grounds the LLM in the current schema and the fixed
// business rules. The schema summary and table descriptions are interpolated
// per request.
const sqlGenerationTemplate = `You are a SQL expert. Generate a SQLite query to answer the user's question.

Database Schema:
%s

Table Descriptions:
%s

Rules:
1. Use only the tables and columns shown in the schema
2. For line totals with tax: quantity * unit_price * (1 + tax_rate)
3. Join clients and invoices on client_id
4. Join invoices and invoice_line_items on invoice_id
5. Return ONLY the SQL query, no explanations
6. Use strftime for date operations in SQLite`

// answerSystemPrompt instructs the LLM to answer strictly from the provided
// result rows.
const answerSystemPrompt = `You are a helpful assistant answering questions about business data.
Based on the query results, provide a clear and accurate answer.

Rules:
1. Use ONLY the data provided in the results
2. Format numbers appropriately (currency with 2 decimals)
3. If results are empty, say no matching data was found
4. Be concise but complete`

const answerTemplate = `Question: %s

SQL Query executed:
%s

Results:
%s

Provide a natural language answer:`

// BuildSQLGenerationPrompt creates the system prompt for SQL generation from
// a rendered schema summary and the table description list.
func BuildSQLGenerationPrompt(schema string, tableDescriptions string) string {
	return fmt.Sprintf(sqlGenerationTemplate, schema, tableDescriptions)
}

// AnswerSystemPrompt returns the system prompt for answer synthesis.
func AnswerSystemPrompt() string {
	return answerSystemPrompt
}

// BuildAnswerPrompt creates the user message for answer synthesis from the
// question, the executed SQL, and the rendered result rows.
func BuildAnswerPrompt(question string, sqlQuery string, results string) string {
	return fmt.Sprintf(answerTemplate, question, sqlQuery, results)
}
