package services

import (
	"fmt"
	"strconv"
	"strings"
)

// RenderRows renders rows as an aligned text table in the given column
// order. Used both for schema samples and for showing query results to the
// answer LLM.
func RenderRows(columns []string, rows []map[string]any) string {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}

	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, len(columns))
		for i, col := range columns {
			cell := formatValue(row[col])
			cells[r][i] = cell
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(fields []string) {
		for i, field := range fields {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(field)
			// No padding after the last column keeps lines clean.
			if i < len(fields)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-len(field)))
			}
		}
		b.WriteString("\n")
	}

	writeRow(columns)
	for _, row := range cells {
		writeRow(row)
	}

	return strings.TrimRight(b.String(), "\n")
}

// formatValue renders a single cell. Floats drop trailing zeros so sample
// data reads naturally.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}
