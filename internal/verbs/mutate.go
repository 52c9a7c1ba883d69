package verbs

import (
	"fmt"
	"math"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/pipeline"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

// Mutate appends a computed float column. Any Null input makes the result
// Null, and a non-finite result (log of a non-positive value, division by
// zero) also becomes Null: NaN and Inf have no delimited-text or canonical
// JSON form, so they never enter a table.
func Mutate(t *table.Table, col string, expr pipeline.Expr) (*table.Table, error) {
	if _, exists := t.Col(col); exists {
		return nil, fmt.Errorf("mutate: column %q already exists", col)
	}

	header := append(t.Header(), col)
	kinds := append(t.Kinds(), table.KindFloat)
	out, err := table.New(header, kinds)
	if err != nil {
		return nil, fmt.Errorf("mutate: %w", err)
	}

	for r := 0; r < t.NumRows(); r++ {
		v, null, err := evalExpr(t, r, expr)
		if err != nil {
			return nil, fmt.Errorf("mutate %q: %w", col, err)
		}
		var cell ir.Value
		if null || math.IsNaN(v) || math.IsInf(v, 0) {
			cell = ir.Null{}
		} else {
			cell = ir.Float(v)
		}
		row := append(append([]ir.Value(nil), t.Row(r)...), cell)
		if err := out.AppendRow(row...); err != nil {
			return nil, fmt.Errorf("mutate: %w", err)
		}
	}
	return out, nil
}

// evalExpr computes an expression for one row. The bool return marks a Null
// result (an input cell was Null).
func evalExpr(t *table.Table, row int, e pipeline.Expr) (float64, bool, error) {
	switch expr := e.(type) {
	case pipeline.ColRef:
		pos, err := t.MustCol(expr.Name)
		if err != nil {
			return 0, false, err
		}
		cell := t.Value(row, pos)
		if ir.IsNull(cell) {
			return 0, true, nil
		}
		f, ok := ir.AsFloat(cell)
		if !ok {
			return 0, false, fmt.Errorf("column %q is not numeric", expr.Name)
		}
		return f, false, nil
	case pipeline.Lit:
		return expr.Value, false, nil
	case pipeline.BinaryExpr:
		l, lNull, err := evalExpr(t, row, expr.L)
		if err != nil {
			return 0, false, err
		}
		r, rNull, err := evalExpr(t, row, expr.R)
		if err != nil {
			return 0, false, err
		}
		if lNull || rNull {
			return 0, true, nil
		}
		switch expr.Op {
		case pipeline.OpAdd:
			return l + r, false, nil
		case pipeline.OpSub:
			return l - r, false, nil
		case pipeline.OpMul:
			return l * r, false, nil
		case pipeline.OpDiv:
			return l / r, false, nil
		default:
			return 0, false, fmt.Errorf("unknown operator %q", expr.Op)
		}
	case pipeline.Call:
		x, null, err := evalExpr(t, row, expr.X)
		if err != nil {
			return 0, false, err
		}
		if null {
			return 0, true, nil
		}
		switch expr.Fn {
		case pipeline.FnLog2:
			return math.Log2(x), false, nil
		case pipeline.FnLog10:
			return math.Log10(x), false, nil
		case pipeline.FnLn:
			return math.Log(x), false, nil
		case pipeline.FnAbs:
			return math.Abs(x), false, nil
		case pipeline.FnNeg:
			return -x, false, nil
		case pipeline.FnSqrt:
			return math.Sqrt(x), false, nil
		default:
			return 0, false, fmt.Errorf("unknown function %q", expr.Fn)
		}
	default:
		return 0, false, fmt.Errorf("unknown expression type %T", e)
	}
}
