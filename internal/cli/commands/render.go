package commands

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/milestone/internal/cli/output"
)

// renderSampleRows prints rows returned by an error-rows query.
func renderSampleRows(r *output.Renderer, rows []map[string]any) {
	colSet := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			colSet[col] = true
		}
	}
	cols := make([]string, 0, len(colSet))
	for col := range colSet {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		values := make([]any, len(cols))
		for i, col := range cols {
			values[i] = formatValue(row[col])
		}
		out = append(out, values)
	}
	r.Table(cols, out)
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
