package pipeline

import (
	"fmt"

	"github.com/robert-koetsier/tidyseq/internal/ir"
)

// CanonicalObject converts the analysis to its canonical object form, the
// input to ir.AnalysisHash. Every field that affects execution is included;
// Golden is not (it names an expectation, not a behavior).
func (a *Analysis) CanonicalObject() ir.Object {
	obj := ir.Object{
		"name":    ir.String(a.Name),
		"dataset": ir.String(a.Dataset),
		"output":  ir.String(string(a.Output)),
	}

	steps := make(ir.Array, len(a.Steps))
	for i, s := range a.Steps {
		steps[i] = stepObject(s)
	}
	obj["steps"] = steps

	if a.Chart != nil {
		obj["chart"] = ir.Object{
			"type":   ir.String(a.Chart.Type),
			"x":      ir.String(a.Chart.X),
			"y":      ir.String(a.Chart.Y),
			"series": ir.String(a.Chart.Series),
			"title":  ir.String(a.Chart.Title),
		}
	}
	if a.Test != nil {
		obj["test"] = ir.Object{
			"method": ir.String(a.Test.Method),
			"rows":   ir.String(a.Test.Rows),
			"cols":   ir.String(a.Test.Cols),
		}
	}
	return obj
}

// Hash computes the content-addressed hash of the analysis.
func (a *Analysis) Hash() (string, error) {
	return ir.AnalysisHash(a.CanonicalObject())
}

func stringArray(items []string) ir.Array {
	arr := make(ir.Array, len(items))
	for i, s := range items {
		arr[i] = ir.String(s)
	}
	return arr
}

func stepObject(s Step) ir.Object {
	switch step := s.(type) {
	case Select:
		return ir.Object{"op": ir.String("select"), "cols": stringArray(step.Cols)}
	case Rename:
		m := make(ir.Object, len(step.Mapping))
		for old, to := range step.Mapping {
			m[old] = ir.String(to)
		}
		return ir.Object{"op": ir.String("rename"), "mapping": m}
	case Filter:
		return ir.Object{"op": ir.String("filter"), "pred": predObject(step.Pred)}
	case Mutate:
		return ir.Object{"op": ir.String("mutate"), "col": ir.String(step.Col), "expr": exprObject(step.Expr)}
	case Arrange:
		keys := make(ir.Array, len(step.Keys))
		for i, k := range step.Keys {
			keys[i] = ir.Object{"col": ir.String(k.Col), "desc": ir.Bool(k.Desc)}
		}
		return ir.Object{"op": ir.String("arrange"), "keys": keys}
	case Distinct:
		return ir.Object{"op": ir.String("distinct"), "cols": stringArray(step.Cols)}
	case Head:
		return ir.Object{"op": ir.String("head"), "n": ir.Int(int64(step.N))}
	case Count:
		return ir.Object{"op": ir.String("count"), "cols": stringArray(step.Cols)}
	case Summarize:
		aggs := make(ir.Array, len(step.Aggs))
		for i, a := range step.Aggs {
			aggs[i] = ir.Object{"out": ir.String(a.Out), "fn": ir.String(a.Fn), "of": ir.String(a.Of)}
		}
		return ir.Object{"op": ir.String("summarize"), "group_by": stringArray(step.GroupBy), "aggs": aggs}
	case Join:
		return ir.Object{
			"op":   ir.String("join"),
			"with": ir.String(step.With),
			"by":   stringArray(step.By),
			"kind": ir.String(step.Kind),
		}
	case PivotLonger:
		return ir.Object{
			"op":        ir.String("pivot_longer"),
			"id":        stringArray(step.IDCols),
			"names_to":  ir.String(step.NamesTo),
			"values_to": ir.String(step.ValuesTo),
		}
	case PivotWider:
		return ir.Object{
			"op":          ir.String("pivot_wider"),
			"names_from":  ir.String(step.NamesFrom),
			"values_from": ir.String(step.ValuesFrom),
		}
	default:
		return ir.Object{"op": ir.String(fmt.Sprintf("unknown(%T)", s))}
	}
}

func predObject(p Predicate) ir.Value {
	switch pred := p.(type) {
	case nil:
		return ir.Null{}
	case Equals:
		return ir.Object{"op": ir.String("eq"), "col": ir.String(pred.Col), "value": pred.Value}
	case In:
		return ir.Object{"op": ir.String("in"), "col": ir.String(pred.Col), "values": ir.Array(pred.Values)}
	case Cmp:
		return ir.Object{"op": ir.String(pred.Op), "col": ir.String(pred.Col), "value": pred.Value}
	case Not:
		return ir.Object{"op": ir.String("not"), "pred": predObject(pred.Pred)}
	case And:
		preds := make(ir.Array, len(pred.Preds))
		for i, inner := range pred.Preds {
			preds[i] = predObject(inner)
		}
		return ir.Object{"op": ir.String("and"), "preds": preds}
	case Or:
		preds := make(ir.Array, len(pred.Preds))
		for i, inner := range pred.Preds {
			preds[i] = predObject(inner)
		}
		return ir.Object{"op": ir.String("or"), "preds": preds}
	default:
		return ir.String(fmt.Sprintf("unknown(%T)", p))
	}
}

func exprObject(e Expr) ir.Value {
	switch expr := e.(type) {
	case nil:
		return ir.Null{}
	case ColRef:
		return ir.Object{"col": ir.String(expr.Name)}
	case Lit:
		return ir.Object{"lit": ir.Float(expr.Value)}
	case BinaryExpr:
		return ir.Object{"op": ir.String(expr.Op), "l": exprObject(expr.L), "r": exprObject(expr.R)}
	case Call:
		return ir.Object{"fn": ir.String(expr.Fn), "arg": exprObject(expr.X)}
	default:
		return ir.String(fmt.Sprintf("unknown(%T)", e))
	}
}
