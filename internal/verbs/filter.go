package verbs

import (
	"fmt"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/pipeline"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

// Filter keeps rows matching the predicate. Predicate evaluation is
// three-valued: a comparison against a Null cell is neither true nor false,
// and a row whose predicate comes out unknown is dropped. This matches how
// the source files propagate NA through filters.
func Filter(t *table.Table, pred pipeline.Predicate) (*table.Table, error) {
	out, err := table.New(t.Header(), t.Kinds())
	if err != nil {
		return nil, err
	}
	for r := 0; r < t.NumRows(); r++ {
		match, err := evalPredicate(t, r, pred)
		if err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
		if match == triTrue {
			if err := out.AppendRow(t.Row(r)...); err != nil {
				return nil, fmt.Errorf("filter: %w", err)
			}
		}
	}
	return out, nil
}

// tri is a three-valued logic result.
type tri int

const (
	triFalse tri = iota
	triTrue
	triNull
)

func evalPredicate(t *table.Table, row int, p pipeline.Predicate) (tri, error) {
	switch pred := p.(type) {
	case pipeline.Equals:
		return evalCompare(t, row, pred.Col, pred.Value, func(c int) bool { return c == 0 })
	case pipeline.In:
		pos, err := t.MustCol(pred.Col)
		if err != nil {
			return triFalse, err
		}
		cell := t.Value(row, pos)
		if ir.IsNull(cell) {
			return triNull, nil
		}
		for _, v := range pred.Values {
			if !ir.IsNull(v) && ir.Compare(cell, v) == 0 {
				return triTrue, nil
			}
		}
		return triFalse, nil
	case pipeline.Cmp:
		var ok func(int) bool
		switch pred.Op {
		case pipeline.OpLt:
			ok = func(c int) bool { return c < 0 }
		case pipeline.OpLe:
			ok = func(c int) bool { return c <= 0 }
		case pipeline.OpGt:
			ok = func(c int) bool { return c > 0 }
		case pipeline.OpGe:
			ok = func(c int) bool { return c >= 0 }
		case pipeline.OpNe:
			ok = func(c int) bool { return c != 0 }
		default:
			return triFalse, fmt.Errorf("unknown comparison %q", pred.Op)
		}
		return evalCompare(t, row, pred.Col, pred.Value, ok)
	case pipeline.Not:
		inner, err := evalPredicate(t, row, pred.Pred)
		if err != nil {
			return triFalse, err
		}
		switch inner {
		case triTrue:
			return triFalse, nil
		case triFalse:
			return triTrue, nil
		default:
			return triNull, nil // NOT NA is NA
		}
	case pipeline.And:
		sawNull := false
		for _, inner := range pred.Preds {
			r, err := evalPredicate(t, row, inner)
			if err != nil {
				return triFalse, err
			}
			switch r {
			case triFalse:
				return triFalse, nil
			case triNull:
				sawNull = true
			}
		}
		if sawNull {
			return triNull, nil
		}
		return triTrue, nil
	case pipeline.Or:
		sawNull := false
		for _, inner := range pred.Preds {
			r, err := evalPredicate(t, row, inner)
			if err != nil {
				return triFalse, err
			}
			switch r {
			case triTrue:
				return triTrue, nil
			case triNull:
				sawNull = true
			}
		}
		if sawNull {
			return triNull, nil
		}
		return triFalse, nil
	default:
		return triFalse, fmt.Errorf("unknown predicate type %T", p)
	}
}

func evalCompare(t *table.Table, row int, col string, lit ir.Value, ok func(int) bool) (tri, error) {
	pos, err := t.MustCol(col)
	if err != nil {
		return triFalse, err
	}
	cell := t.Value(row, pos)
	if ir.IsNull(cell) || lit == nil || ir.IsNull(lit) {
		return triNull, nil
	}
	if ok(ir.Compare(cell, lit)) {
		return triTrue, nil
	}
	return triFalse, nil
}
