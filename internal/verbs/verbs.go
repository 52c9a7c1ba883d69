package verbs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/pipeline"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

// Select projects the named columns in the given order.
func Select(t *table.Table, cols ...string) (*table.Table, error) {
	idx := make([]int, len(cols))
	kinds := make([]table.Kind, len(cols))
	allKinds := t.Kinds()
	for i, name := range cols {
		pos, err := t.MustCol(name)
		if err != nil {
			return nil, fmt.Errorf("select: %w", err)
		}
		idx[i] = pos
		kinds[i] = allKinds[pos]
	}

	out, err := table.New(cols, kinds)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	for r := 0; r < t.NumRows(); r++ {
		row := t.Row(r)
		cells := make([]ir.Value, len(idx))
		for i, pos := range idx {
			cells[i] = row[pos]
		}
		if err := out.AppendRow(cells...); err != nil {
			return nil, fmt.Errorf("select: %w", err)
		}
	}
	return out, nil
}

// Rename renames columns old → new, keeping positions.
func Rename(t *table.Table, mapping map[string]string) (*table.Table, error) {
	header := t.Header()
	for old, to := range mapping {
		pos, err := t.MustCol(old)
		if err != nil {
			return nil, fmt.Errorf("rename: %w", err)
		}
		header[pos] = to
	}

	out, err := table.New(header, t.Kinds())
	if err != nil {
		return nil, fmt.Errorf("rename: %w", err)
	}
	for r := 0; r < t.NumRows(); r++ {
		if err := out.AppendRow(t.Row(r)...); err != nil {
			return nil, fmt.Errorf("rename: %w", err)
		}
	}
	return out, nil
}

// Head keeps the first n rows.
func Head(t *table.Table, n int) (*table.Table, error) {
	if n < 0 {
		return nil, fmt.Errorf("head: n must be non-negative, got %d", n)
	}
	out, err := table.New(t.Header(), t.Kinds())
	if err != nil {
		return nil, err
	}
	for r := 0; r < t.NumRows() && r < n; r++ {
		if err := out.AppendRow(t.Row(r)...); err != nil {
			return nil, fmt.Errorf("head: %w", err)
		}
	}
	return out, nil
}

// Distinct keeps the first row for each combination of the named columns.
// With no columns, the whole row is the key.
func Distinct(t *table.Table, cols ...string) (*table.Table, error) {
	if len(cols) == 0 {
		cols = t.Header()
	}
	idx := make([]int, len(cols))
	for i, name := range cols {
		pos, err := t.MustCol(name)
		if err != nil {
			return nil, fmt.Errorf("distinct: %w", err)
		}
		idx[i] = pos
	}

	out, err := table.New(t.Header(), t.Kinds())
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for r := 0; r < t.NumRows(); r++ {
		key := rowKey(t.Row(r), idx)
		if seen[key] {
			continue
		}
		seen[key] = true
		if err := out.AppendRow(t.Row(r)...); err != nil {
			return nil, fmt.Errorf("distinct: %w", err)
		}
	}
	return out, nil
}

// Arrange sorts rows by the keys in order. The sort is stable; ties keep
// input order. Null cells sort last under both directions, the convention
// the source files use for NA.
func Arrange(t *table.Table, keys ...pipeline.SortKey) (*table.Table, error) {
	idx := make([]int, len(keys))
	for i, k := range keys {
		pos, err := t.MustCol(k.Col)
		if err != nil {
			return nil, fmt.Errorf("arrange: %w", err)
		}
		idx[i] = pos
	}

	order := make([]int, t.NumRows())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := t.Row(order[a]), t.Row(order[b])
		for i, k := range keys {
			va, vb := ra[idx[i]], rb[idx[i]]
			aNull, bNull := ir.IsNull(va), ir.IsNull(vb)
			switch {
			case aNull && bNull:
				continue
			case aNull:
				return false // Null last
			case bNull:
				return true
			}
			c := ir.Compare(va, vb)
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	out, err := table.New(t.Header(), t.Kinds())
	if err != nil {
		return nil, err
	}
	for _, r := range order {
		if err := out.AppendRow(t.Row(r)...); err != nil {
			return nil, fmt.Errorf("arrange: %w", err)
		}
	}
	return out, nil
}

// rowKey builds a collision-free string key from the cells at idx.
// Each cell is tagged with its variant so String("2") and Int(2) differ,
// and "NA" text never collides with a Null cell.
func rowKey(row []ir.Value, idx []int) string {
	var b strings.Builder
	for _, pos := range idx {
		cell := row[pos]
		switch cell.(type) {
		case ir.Null:
			b.WriteString("\x00n")
		case ir.String:
			b.WriteString("\x00s")
		case ir.Int, ir.Float:
			b.WriteString("\x00f")
		case ir.Bool:
			b.WriteString("\x00b")
		}
		b.WriteString(keyText(cell))
	}
	return b.String()
}

// keyText renders a cell for key purposes. Int and Float share the numeric
// tag and render through float formatting so 2 and 2.0 group together.
func keyText(cell ir.Value) string {
	if f, ok := ir.AsFloat(cell); ok {
		return ir.FormatFloat(f)
	}
	return ir.Text(cell)
}
