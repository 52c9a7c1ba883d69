package verbs

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/pipeline"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

// group is one group of row indices sharing a key. Groups keep
// first-appearance order so summarize output is deterministic without a
// trailing sort.
type group struct {
	key  string
	rows []int
}

func groupRows(t *table.Table, cols []string) ([]group, []int, error) {
	idx := make([]int, len(cols))
	for i, name := range cols {
		pos, err := t.MustCol(name)
		if err != nil {
			return nil, nil, err
		}
		idx[i] = pos
	}

	byKey := make(map[string]int)
	var groups []group
	for r := 0; r < t.NumRows(); r++ {
		key := rowKey(t.Row(r), idx)
		gi, ok := byKey[key]
		if !ok {
			gi = len(groups)
			byKey[key] = gi
			groups = append(groups, group{key: key})
		}
		groups[gi].rows = append(groups[gi].rows, r)
	}
	return groups, idx, nil
}

// CountBy groups by the named columns and appends an int column "n" with
// the group sizes, one row per group.
func CountBy(t *table.Table, cols ...string) (*table.Table, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("count: at least one grouping column is required")
	}
	groups, idx, err := groupRows(t, cols)
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	allKinds := t.Kinds()
	kinds := make([]table.Kind, 0, len(cols)+1)
	for _, pos := range idx {
		kinds = append(kinds, allKinds[pos])
	}
	kinds = append(kinds, table.KindInt)

	out, err := table.New(append(append([]string(nil), cols...), "n"), kinds)
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}
	for _, g := range groups {
		first := t.Row(g.rows[0])
		cells := make([]ir.Value, 0, len(idx)+1)
		for _, pos := range idx {
			cells = append(cells, first[pos])
		}
		cells = append(cells, ir.Int(int64(len(g.rows))))
		if err := out.AppendRow(cells...); err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
	}
	return out, nil
}

// Summarize groups rows by groupBy and reduces each group to one row of
// aggregates. With an empty groupBy the whole table is one group.
//
// Null inputs are skipped; a group with no non-Null input yields a Null
// aggregate. sd is the sample standard deviation and needs at least two
// values, otherwise Null.
func Summarize(t *table.Table, groupBy []string, aggs []pipeline.Agg) (*table.Table, error) {
	var groups []group
	var idx []int
	var err error
	if len(groupBy) == 0 {
		all := make([]int, t.NumRows())
		for i := range all {
			all[i] = i
		}
		groups = []group{{rows: all}}
	} else {
		groups, idx, err = groupRows(t, groupBy)
		if err != nil {
			return nil, fmt.Errorf("summarize: %w", err)
		}
	}

	header := append([]string(nil), groupBy...)
	allKinds := t.Kinds()
	kinds := make([]table.Kind, 0, len(groupBy)+len(aggs))
	for _, pos := range idx {
		kinds = append(kinds, allKinds[pos])
	}

	// Resolve aggregation inputs up front
	type binding struct {
		agg pipeline.Agg
		pos int // -1 for count without an input column
	}
	bindings := make([]binding, len(aggs))
	for i, agg := range aggs {
		b := binding{agg: agg, pos: -1}
		if agg.Of != "" {
			pos, err := t.MustCol(agg.Of)
			if err != nil {
				return nil, fmt.Errorf("summarize %q: %w", agg.Out, err)
			}
			b.pos = pos
		} else if agg.Fn != "count" {
			return nil, fmt.Errorf("summarize %q: %s needs an input column", agg.Out, agg.Fn)
		}
		if b.pos >= 0 && agg.Fn != "count" && agg.Fn != "first" {
			k := allKinds[b.pos]
			if k != table.KindInt && k != table.KindFloat {
				return nil, fmt.Errorf("summarize %q: %s needs a numeric column, %q is %s",
					agg.Out, agg.Fn, agg.Of, k)
			}
		}
		bindings[i] = b

		header = append(header, agg.Out)
		switch agg.Fn {
		case "count":
			kinds = append(kinds, table.KindInt)
		case "first":
			kinds = append(kinds, allKinds[b.pos])
		default:
			kinds = append(kinds, table.KindFloat)
		}
	}

	out, err := table.New(header, kinds)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	for _, g := range groups {
		cells := make([]ir.Value, 0, len(header))
		first := t.Row(g.rows[0])
		for _, pos := range idx {
			cells = append(cells, first[pos])
		}
		for _, b := range bindings {
			cell, err := aggregate(t, g.rows, b.agg.Fn, b.pos)
			if err != nil {
				return nil, fmt.Errorf("summarize %q: %w", b.agg.Out, err)
			}
			cells = append(cells, cell)
		}
		if err := out.AppendRow(cells...); err != nil {
			return nil, fmt.Errorf("summarize: %w", err)
		}
	}
	return out, nil
}

func aggregate(t *table.Table, rows []int, fn string, pos int) (ir.Value, error) {
	if fn == "count" {
		return ir.Int(int64(len(rows))), nil
	}
	if fn == "first" {
		for _, r := range rows {
			cell := t.Value(r, pos)
			if !ir.IsNull(cell) {
				return cell, nil
			}
		}
		return ir.Null{}, nil
	}

	vals := make([]float64, 0, len(rows))
	for _, r := range rows {
		if f, ok := t.Float(r, pos); ok {
			vals = append(vals, f)
		}
	}
	if len(vals) == 0 {
		return ir.Null{}, nil
	}

	switch fn {
	case "sum":
		total := 0.0
		for _, v := range vals {
			total += v
		}
		return ir.Float(total), nil
	case "mean":
		return ir.Float(stat.Mean(vals, nil)), nil
	case "median":
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		n := len(sorted)
		if n%2 == 1 {
			return ir.Float(sorted[n/2]), nil
		}
		// Even count interpolates, the convention the source files follow
		return ir.Float((sorted[n/2-1] + sorted[n/2]) / 2), nil
	case "min":
		m := vals[0]
		for _, v := range vals[1:] {
			if v < m {
				m = v
			}
		}
		return ir.Float(m), nil
	case "max":
		m := vals[0]
		for _, v := range vals[1:] {
			if v > m {
				m = v
			}
		}
		return ir.Float(m), nil
	case "sd":
		if len(vals) < 2 {
			return ir.Null{}, nil
		}
		return ir.Float(stat.StdDev(vals, nil)), nil
	default:
		return nil, fmt.Errorf("unknown aggregation %q", fn)
	}
}
