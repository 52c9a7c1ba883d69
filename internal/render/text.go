package render

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

// TextOptions controls the terminal table renderer.
type TextOptions struct {
	MaxRows int // 0 means render every row
}

// RenderText writes an aligned plain-text table. Int cells get thousands
// separators, floats render with six significant digits, Null renders as
// NA. Numeric columns are right-aligned. When MaxRows truncates the
// output a "... N more rows" footer reports what was cut.
func RenderText(w io.Writer, t *table.Table, opts TextOptions) error {
	printer := message.NewPrinter(language.English)

	nRows := t.NumRows()
	shown := nRows
	if opts.MaxRows > 0 && opts.MaxRows < nRows {
		shown = opts.MaxRows
	}

	header := t.Header()
	kinds := t.Kinds()
	cells := make([][]string, shown)
	widths := make([]int, len(header))
	for c, name := range header {
		widths[c] = len(name)
	}
	for r := 0; r < shown; r++ {
		cells[r] = make([]string, len(header))
		for c := range header {
			s := formatCell(printer, t.Value(r, c))
			cells[r][c] = s
			if len(s) > widths[c] {
				widths[c] = len(s)
			}
		}
	}

	writeRow := func(row []string) error {
		parts := make([]string, len(row))
		for c, s := range row {
			if numericKind(kinds[c]) {
				parts[c] = fmt.Sprintf("%*s", widths[c], s)
			} else {
				parts[c] = fmt.Sprintf("%-*s", widths[c], s)
			}
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
		return err
	}

	if err := writeRow(header); err != nil {
		return fmt.Errorf("render text: %w", err)
	}
	rule := make([]string, len(header))
	for c := range header {
		rule[c] = strings.Repeat("-", widths[c])
	}
	if err := writeRow(rule); err != nil {
		return fmt.Errorf("render text: %w", err)
	}
	for r := 0; r < shown; r++ {
		if err := writeRow(cells[r]); err != nil {
			return fmt.Errorf("render text: %w", err)
		}
	}
	if shown < nRows {
		if _, err := fmt.Fprintf(w, "... %d more rows\n", nRows-shown); err != nil {
			return fmt.Errorf("render text: %w", err)
		}
	}
	return nil
}

func numericKind(k table.Kind) bool {
	return k == table.KindInt || k == table.KindFloat
}

func formatCell(printer *message.Printer, v ir.Value) string {
	switch val := v.(type) {
	case ir.Int:
		return printer.Sprintf("%d", int64(val))
	case ir.Float:
		return fmt.Sprintf("%.6g", float64(val))
	default:
		return ir.Text(v)
	}
}
