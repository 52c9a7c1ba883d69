package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/robert-koetsier/tidyseq/internal/ir"
)

// WriteDelim writes the table as delimited text: header row first, Null
// cells as "NA", floats in canonical shortest form.
func (t *Table) WriteDelim(w io.Writer, delim rune) error {
	cw := csv.NewWriter(w)
	if delim != 0 {
		cw.Comma = delim
	}

	if err := cw.Write(t.header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(t.header))
	for i, row := range t.rows {
		for j, cell := range row {
			record[j] = ir.Text(cell)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to a file, picking the delimiter from the
// extension the same way ReadFile does.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := t.WriteDelim(f, DelimForPath(path)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
