package format

import (
	"strings"
	"testing"

	"github.com/dishql/dishql/internal/query"
)

func TestTableRendersRowsAndFooter(t *testing.T) {
	out := Table(query.Result{
		Columns: []string{"name", "base_price"},
		Rows: [][]any{
			{"Paneer Tikka", 9.5},
			{"Dal Makhani", 8.0},
		},
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("len(lines) = %d, output:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "name") || !strings.Contains(lines[0], "base_price") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[2], "Paneer Tikka") || !strings.Contains(lines[2], "9.5") {
		t.Fatalf("row = %q", lines[2])
	}
	if lines[4] != "(2 rows)" {
		t.Fatalf("footer = %q", lines[4])
	}
}

func TestTableRendersNullsAndBytes(t *testing.T) {
	out := Table(query.Result{
		Columns: []string{"description"},
		Rows:    [][]any{{nil}, {[]byte("smoky")}},
	})
	if !strings.Contains(out, "NULL") {
		t.Fatalf("output missing NULL:\n%s", out)
	}
	if !strings.Contains(out, "smoky") {
		t.Fatalf("output missing byte value:\n%s", out)
	}
}

func TestTableEmptyResult(t *testing.T) {
	out := Table(query.Result{Columns: []string{"name"}})
	if !strings.Contains(out, "(no rows)") {
		t.Fatalf("output = %q", out)
	}
}

func TestTableSingleRowFooter(t *testing.T) {
	out := Table(query.Result{Columns: []string{"name"}, Rows: [][]any{{"Dal"}}})
	if !strings.Contains(out, "(1 row)") {
		t.Fatalf("output = %q", out)
	}
}

func TestTableTruncationNote(t *testing.T) {
	out := Table(query.Result{
		Columns:   []string{"name"},
		Rows:      [][]any{{"a"}, {"b"}},
		Truncated: true,
	})
	if !strings.Contains(out, "(output truncated at row limit)") {
		t.Fatalf("output = %q", out)
	}
}
