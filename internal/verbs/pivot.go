package verbs

import (
	"fmt"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

// PivotLonger reshapes wide to long: every column outside idCols becomes a
// (namesTo, valuesTo) row pair. Value columns must unify to a single kind -
// int and float unify to float; anything else mixed is an error. Count
// matrices (gene_id plus one column per sample) are the canonical input.
func PivotLonger(t *table.Table, idCols []string, namesTo, valuesTo string) (*table.Table, error) {
	idSet := make(map[string]bool, len(idCols))
	idIdx := make([]int, len(idCols))
	allKinds := t.Kinds()
	for i, name := range idCols {
		pos, err := t.MustCol(name)
		if err != nil {
			return nil, fmt.Errorf("pivot_longer: %w", err)
		}
		idIdx[i] = pos
		idSet[name] = true
	}

	var valueIdx []int
	var valueNames []string
	for i, name := range t.Header() {
		if !idSet[name] {
			valueIdx = append(valueIdx, i)
			valueNames = append(valueNames, name)
		}
	}
	if len(valueIdx) == 0 {
		return nil, fmt.Errorf("pivot_longer: no value columns outside the id columns")
	}

	valueKind, err := unifyKinds(t, valueIdx, allKinds)
	if err != nil {
		return nil, fmt.Errorf("pivot_longer: %w", err)
	}

	header := make([]string, 0, len(idCols)+2)
	kinds := make([]table.Kind, 0, len(idCols)+2)
	for i, name := range idCols {
		header = append(header, name)
		kinds = append(kinds, allKinds[idIdx[i]])
	}
	header = append(header, namesTo, valuesTo)
	kinds = append(kinds, table.KindString, valueKind)

	out, err := table.New(header, kinds)
	if err != nil {
		return nil, fmt.Errorf("pivot_longer: %w", err)
	}

	for r := 0; r < t.NumRows(); r++ {
		row := t.Row(r)
		for vi, pos := range valueIdx {
			cells := make([]ir.Value, 0, len(header))
			for _, ip := range idIdx {
				cells = append(cells, row[ip])
			}
			cells = append(cells, ir.String(valueNames[vi]), row[pos])
			if err := out.AppendRow(cells...); err != nil {
				return nil, fmt.Errorf("pivot_longer: %w", err)
			}
		}
	}
	return out, nil
}

// PivotWider reshapes long to wide: distinct values of namesFrom (in first
// appearance order) become columns filled from valuesFrom. All remaining
// columns identify the output row. A duplicate (id, name) cell is an error;
// missing cells are Null.
func PivotWider(t *table.Table, namesFrom, valuesFrom string) (*table.Table, error) {
	namesPos, err := t.MustCol(namesFrom)
	if err != nil {
		return nil, fmt.Errorf("pivot_wider: %w", err)
	}
	valuesPos, err := t.MustCol(valuesFrom)
	if err != nil {
		return nil, fmt.Errorf("pivot_wider: %w", err)
	}

	allKinds := t.Kinds()
	var idIdx []int
	var idNames []string
	var idKinds []table.Kind
	for i, name := range t.Header() {
		if i == namesPos || i == valuesPos {
			continue
		}
		idIdx = append(idIdx, i)
		idNames = append(idNames, name)
		idKinds = append(idKinds, allKinds[i])
	}

	// Column order and row order are both first appearance
	var newCols []string
	newColPos := make(map[string]int)
	type widerRow struct {
		id    []ir.Value
		cells map[string]ir.Value
	}
	var rows []*widerRow
	rowByKey := make(map[string]*widerRow)

	for r := 0; r < t.NumRows(); r++ {
		row := t.Row(r)
		name := ir.Text(row[namesPos])
		if ir.IsNull(row[namesPos]) {
			return nil, fmt.Errorf("pivot_wider: row %d has a missing %q value", r+1, namesFrom)
		}
		if _, ok := newColPos[name]; !ok {
			if _, clash := t.Col(name); clash && name != namesFrom && name != valuesFrom {
				return nil, fmt.Errorf("pivot_wider: new column %q collides with an id column", name)
			}
			newColPos[name] = len(newCols)
			newCols = append(newCols, name)
		}

		key := rowKey(row, idIdx)
		wr, ok := rowByKey[key]
		if !ok {
			id := make([]ir.Value, len(idIdx))
			for i, pos := range idIdx {
				id[i] = row[pos]
			}
			wr = &widerRow{id: id, cells: make(map[string]ir.Value)}
			rowByKey[key] = wr
			rows = append(rows, wr)
		}
		if _, dup := wr.cells[name]; dup {
			return nil, fmt.Errorf("pivot_wider: duplicate cell for %q in row group %d", name, len(rows))
		}
		wr.cells[name] = row[valuesPos]
	}

	header := append(append([]string(nil), idNames...), newCols...)
	kinds := append([]table.Kind(nil), idKinds...)
	valueKind := allKinds[valuesPos]
	for range newCols {
		kinds = append(kinds, valueKind)
	}

	out, err := table.New(header, kinds)
	if err != nil {
		return nil, fmt.Errorf("pivot_wider: %w", err)
	}
	for _, wr := range rows {
		cells := append([]ir.Value(nil), wr.id...)
		for _, name := range newCols {
			if cell, ok := wr.cells[name]; ok {
				cells = append(cells, cell)
			} else {
				cells = append(cells, ir.Null{})
			}
		}
		if err := out.AppendRow(cells...); err != nil {
			return nil, fmt.Errorf("pivot_wider: %w", err)
		}
	}
	return out, nil
}

// unifyKinds finds the single kind all value columns share. Int widens to
// float when mixed with float.
func unifyKinds(t *table.Table, idx []int, kinds []table.Kind) (table.Kind, error) {
	unified := kinds[idx[0]]
	for _, pos := range idx[1:] {
		k := kinds[pos]
		if k == unified {
			continue
		}
		numeric := func(k table.Kind) bool { return k == table.KindInt || k == table.KindFloat }
		if numeric(k) && numeric(unified) {
			unified = table.KindFloat
			continue
		}
		return 0, fmt.Errorf("value columns mix %s and %s; pivot needs one kind", unified, k)
	}
	return unified, nil
}
