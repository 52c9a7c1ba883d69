package harness

import (
	"fmt"
	"strings"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

// AssertionError is returned when a result assertion fails. It carries the
// result header so the failure is debuggable without re-running.
type AssertionError struct {
	Type     string // assertion type for categorization
	Expected string
	Actual   string
	Header   []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "  Columns: %s\n", strings.Join(e.Header, ", "))
	return buf.String()
}

// RequireColumns checks the result has exactly the given header, in order.
func RequireColumns(t *table.Table, cols ...string) error {
	header := t.Header()
	if len(header) != len(cols) {
		return columnsError(header, cols)
	}
	for i, col := range cols {
		if header[i] != col {
			return columnsError(header, cols)
		}
	}
	return nil
}

func columnsError(header, cols []string) error {
	return &AssertionError{
		Type:     "columns",
		Expected: strings.Join(cols, ", "),
		Actual:   strings.Join(header, ", "),
		Header:   header,
	}
}

// RequireRowCount checks the result has exactly n rows.
func RequireRowCount(t *table.Table, n int) error {
	if t.NumRows() != n {
		return &AssertionError{
			Type:     "row_count",
			Expected: fmt.Sprintf("%d rows", n),
			Actual:   fmt.Sprintf("%d rows", t.NumRows()),
			Header:   t.Header(),
		}
	}
	return nil
}

// RequireCell checks a single cell by row index and column name. The
// expected value is compared by ir equality, so NA cells match ir.Null{}.
func RequireCell(t *table.Table, row int, col string, want ir.Value) error {
	pos, err := t.MustCol(col)
	if err != nil {
		return &AssertionError{
			Type:     "cell",
			Expected: fmt.Sprintf("column %q present", col),
			Actual:   err.Error(),
			Header:   t.Header(),
		}
	}
	if row < 0 || row >= t.NumRows() {
		return &AssertionError{
			Type:     "cell",
			Expected: fmt.Sprintf("row %d present", row),
			Actual:   fmt.Sprintf("%d rows", t.NumRows()),
			Header:   t.Header(),
		}
	}
	got := t.Value(row, pos)
	if got != want {
		return &AssertionError{
			Type:     "cell",
			Expected: fmt.Sprintf("[%d, %s] = %s", row, col, ir.Text(want)),
			Actual:   ir.Text(got),
			Header:   t.Header(),
		}
	}
	return nil
}
