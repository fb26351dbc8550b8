// Package format renders query results for the terminal.
package format

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dishql/dishql/internal/query"
)

// Table renders a result as an aligned text table with a row-count footer.
func Table(result query.Result) string {
	var sb strings.Builder

	if len(result.Columns) > 0 {
		w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, strings.Join(result.Columns, "\t"))

		separators := make([]string, len(result.Columns))
		for i, column := range result.Columns {
			separators[i] = strings.Repeat("-", len(column))
		}
		_, _ = fmt.Fprintln(w, strings.Join(separators, "\t"))

		for _, row := range result.Rows {
			cells := make([]string, len(row))
			for i, value := range row {
				cells[i] = renderValue(value)
			}
			_, _ = fmt.Fprintln(w, strings.Join(cells, "\t"))
		}
		_ = w.Flush()
	}

	switch len(result.Rows) {
	case 0:
		sb.WriteString("(no rows)\n")
	case 1:
		sb.WriteString("(1 row)\n")
	default:
		sb.WriteString(fmt.Sprintf("(%d rows)\n", len(result.Rows)))
	}
	if result.Truncated {
		sb.WriteString("(output truncated at row limit)\n")
	}
	return sb.String()
}

func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
