package pipeline

import (
	"fmt"
)

// ValidationError describes one invalid node, with a path into the analysis
// like "steps[2].filter" so CLI output can point at the CUE field.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

var validAggFns = map[string]bool{
	"sum": true, "mean": true, "median": true, "min": true,
	"max": true, "sd": true, "count": true, "first": true,
}

var validCmpOps = map[string]bool{
	OpLt: true, OpLe: true, OpGt: true, OpGe: true, OpNe: true,
}

var validBinOps = map[string]bool{
	OpAdd: true, OpSub: true, OpMul: true, OpDiv: true,
}

var validFns = map[string]bool{
	FnLog2: true, FnLog10: true, FnLn: true,
	FnAbs: true, FnNeg: true, FnSqrt: true,
}

var validChartTypes = map[string]bool{
	"bar": true, "scatter": true, "line": true, "box": true,
}

// Validate checks the whole analysis and returns every problem found.
// Column existence is checked at execution time (it depends on the dataset);
// this pass catches structural problems that no dataset can fix.
func (a *Analysis) Validate() []*ValidationError {
	var errs []*ValidationError
	add := func(path, format string, args ...any) {
		errs = append(errs, &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if a.Name == "" {
		add("name", "analysis name is required")
	}
	if a.Dataset == "" {
		add("dataset", "source dataset is required")
	}

	switch a.Output {
	case OutputTable, OutputText, "":
	case OutputChart:
		if a.Chart == nil {
			add("chart", "output is %q but no chart spec given", OutputChart)
		}
	default:
		add("output", "unknown output %q (want table, chart, or text)", a.Output)
	}

	if a.Chart != nil {
		if !validChartTypes[a.Chart.Type] {
			add("chart.type", "unknown chart type %q", a.Chart.Type)
		}
		if a.Chart.X == "" {
			add("chart.x", "x column is required")
		}
		if a.Chart.Y == "" && a.Chart.Type != "box" {
			add("chart.y", "y column is required for %s charts", a.Chart.Type)
		}
	}

	if a.Test != nil {
		if a.Test.Method != "fisher" && a.Test.Method != "chisq" {
			add("test.method", "unknown test method %q (want fisher or chisq)", a.Test.Method)
		}
		if a.Test.Rows == "" || a.Test.Cols == "" {
			add("test", "both rows and cols columns are required")
		}
	}

	for i, step := range a.Steps {
		path := fmt.Sprintf("steps[%d]", i)
		errs = append(errs, validateStep(path, step)...)
	}

	return errs
}

func validateStep(path string, step Step) []*ValidationError {
	var errs []*ValidationError
	add := func(sub, format string, args ...any) {
		p := path
		if sub != "" {
			p = path + "." + sub
		}
		errs = append(errs, &ValidationError{Path: p, Message: fmt.Sprintf(format, args...)})
	}

	switch s := step.(type) {
	case Select:
		if len(s.Cols) == 0 {
			add("select", "at least one column is required")
		}
	case Rename:
		if len(s.Mapping) == 0 {
			add("rename", "at least one mapping is required")
		}
	case Filter:
		if s.Pred == nil {
			add("filter", "predicate is required")
		} else {
			errs = append(errs, validatePredicate(path+".filter", s.Pred)...)
		}
	case Mutate:
		if s.Col == "" {
			add("mutate.col", "result column name is required")
		}
		if s.Expr == nil {
			add("mutate.expr", "expression is required")
		} else {
			errs = append(errs, validateExpr(path+".mutate.expr", s.Expr)...)
		}
	case Arrange:
		if len(s.Keys) == 0 {
			add("arrange", "at least one sort key is required")
		}
		for j, k := range s.Keys {
			if k.Col == "" {
				add(fmt.Sprintf("arrange[%d]", j), "sort column is required")
			}
		}
	case Distinct:
		// empty Cols means all columns
	case Head:
		if s.N < 0 {
			add("head", "n must be non-negative, got %d", s.N)
		}
	case Count:
		if len(s.Cols) == 0 {
			add("count", "at least one grouping column is required")
		}
	case Summarize:
		if len(s.Aggs) == 0 {
			add("summarize", "at least one aggregation is required")
		}
		for j, agg := range s.Aggs {
			p := fmt.Sprintf("summarize.aggs[%d]", j)
			if agg.Out == "" {
				add(p, "result column name is required")
			}
			if !validAggFns[agg.Fn] {
				add(p, "unknown aggregation %q", agg.Fn)
			}
			if agg.Of == "" && agg.Fn != "count" {
				add(p, "%s needs an input column", agg.Fn)
			}
		}
	case Join:
		if s.With == "" {
			add("join.with", "dataset name is required")
		}
		if len(s.By) == 0 {
			add("join.by", "at least one key column is required")
		}
		if s.Kind != "left" && s.Kind != "inner" {
			add("join.kind", "unknown join kind %q (want left or inner)", s.Kind)
		}
	case PivotLonger:
		if len(s.IDCols) == 0 {
			add("pivot_longer.id", "at least one id column is required")
		}
		if s.NamesTo == "" || s.ValuesTo == "" {
			add("pivot_longer", "names_to and values_to are required")
		}
	case PivotWider:
		if s.NamesFrom == "" || s.ValuesFrom == "" {
			add("pivot_wider", "names_from and values_from are required")
		}
	default:
		add("", "unknown step type %T", step)
	}

	return errs
}

func validatePredicate(path string, p Predicate) []*ValidationError {
	var errs []*ValidationError
	add := func(format string, args ...any) {
		errs = append(errs, &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	switch pred := p.(type) {
	case Equals:
		if pred.Col == "" {
			add("column is required")
		}
		if pred.Value == nil {
			add("value is required")
		}
	case In:
		if pred.Col == "" {
			add("column is required")
		}
		if len(pred.Values) == 0 {
			add("at least one value is required")
		}
	case Cmp:
		if pred.Col == "" {
			add("column is required")
		}
		if !validCmpOps[pred.Op] {
			add("unknown comparison %q", pred.Op)
		}
		if pred.Value == nil {
			add("value is required")
		}
	case Not:
		if pred.Pred == nil {
			add("inner predicate is required")
		} else {
			errs = append(errs, validatePredicate(path+".not", pred.Pred)...)
		}
	case And:
		for i, inner := range pred.Preds {
			errs = append(errs, validatePredicate(fmt.Sprintf("%s.and[%d]", path, i), inner)...)
		}
	case Or:
		for i, inner := range pred.Preds {
			errs = append(errs, validatePredicate(fmt.Sprintf("%s.or[%d]", path, i), inner)...)
		}
	default:
		add("unknown predicate type %T", p)
	}

	return errs
}

func validateExpr(path string, e Expr) []*ValidationError {
	var errs []*ValidationError
	add := func(format string, args ...any) {
		errs = append(errs, &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	switch expr := e.(type) {
	case ColRef:
		if expr.Name == "" {
			add("column name is required")
		}
	case Lit:
	case BinaryExpr:
		if !validBinOps[expr.Op] {
			add("unknown operator %q", expr.Op)
		}
		if expr.L == nil || expr.R == nil {
			add("both operands are required")
		} else {
			errs = append(errs, validateExpr(path+".l", expr.L)...)
			errs = append(errs, validateExpr(path+".r", expr.R)...)
		}
	case Call:
		if !validFns[expr.Fn] {
			add("unknown function %q", expr.Fn)
		}
		if expr.X == nil {
			add("argument is required")
		} else {
			errs = append(errs, validateExpr(path+".arg", expr.X)...)
		}
	default:
		add("unknown expression type %T", e)
	}

	return errs
}
