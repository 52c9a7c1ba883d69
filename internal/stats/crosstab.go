// Package stats implements contingency-table significance tests and numeric
// column summaries for analysis results.
package stats

import (
	"fmt"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

// ContingencyTable is a cross-tabulation of two categorical columns.
// Levels appear in first-appearance order of the source rows.
type ContingencyTable struct {
	RowName   string
	ColName   string
	RowLevels []string
	ColLevels []string
	Counts    [][]int // Counts[i][j] = rows with RowLevels[i] and ColLevels[j]
	RowTotals []int
	ColTotals []int
	N         int
}

// Crosstab counts the co-occurrence of two categorical columns. Rows where
// either cell is NA are excluded.
func Crosstab(t *table.Table, rowCol, colCol string) (*ContingencyTable, error) {
	rowPos, err := t.MustCol(rowCol)
	if err != nil {
		return nil, fmt.Errorf("crosstab: %w", err)
	}
	colPos, err := t.MustCol(colCol)
	if err != nil {
		return nil, fmt.Errorf("crosstab: %w", err)
	}
	if rowCol == colCol {
		return nil, fmt.Errorf("crosstab: row and column variables are both %q", rowCol)
	}

	ct := &ContingencyTable{RowName: rowCol, ColName: colCol}
	rowIdx := make(map[string]int)
	colIdx := make(map[string]int)

	for r := 0; r < t.NumRows(); r++ {
		rv, cv := t.Value(r, rowPos), t.Value(r, colPos)
		if ir.IsNull(rv) || ir.IsNull(cv) {
			continue
		}
		rl, cl := ir.Text(rv), ir.Text(cv)

		ri, ok := rowIdx[rl]
		if !ok {
			ri = len(ct.RowLevels)
			rowIdx[rl] = ri
			ct.RowLevels = append(ct.RowLevels, rl)
			ct.Counts = append(ct.Counts, make([]int, len(ct.ColLevels)))
		}
		ci, ok := colIdx[cl]
		if !ok {
			ci = len(ct.ColLevels)
			colIdx[cl] = ci
			ct.ColLevels = append(ct.ColLevels, cl)
			for i := range ct.Counts {
				ct.Counts[i] = append(ct.Counts[i], 0)
			}
		}
		ct.Counts[ri][ci]++
		ct.N++
	}

	if len(ct.RowLevels) == 0 {
		return nil, fmt.Errorf("crosstab: no complete observations for %q x %q", rowCol, colCol)
	}

	ct.RowTotals = make([]int, len(ct.RowLevels))
	ct.ColTotals = make([]int, len(ct.ColLevels))
	for i, row := range ct.Counts {
		for j, n := range row {
			ct.RowTotals[i] += n
			ct.ColTotals[j] += n
		}
	}
	return ct, nil
}

// ToTable renders the contingency table as a regular table with the row
// variable as the first column and one int column per column level.
func (ct *ContingencyTable) ToTable() (*table.Table, error) {
	header := append([]string{ct.RowName}, ct.ColLevels...)
	kinds := make([]table.Kind, len(header))
	kinds[0] = table.KindString
	for i := 1; i < len(kinds); i++ {
		kinds[i] = table.KindInt
	}
	out, err := table.New(header, kinds)
	if err != nil {
		return nil, fmt.Errorf("crosstab table: %w", err)
	}
	for i, level := range ct.RowLevels {
		cells := make([]ir.Value, 0, len(header))
		cells = append(cells, ir.String(level))
		for _, n := range ct.Counts[i] {
			cells = append(cells, ir.Int(n))
		}
		if err := out.AppendRow(cells...); err != nil {
			return nil, fmt.Errorf("crosstab table: %w", err)
		}
	}
	return out, nil
}
