// Package compiler turns CUE analysis specs into pipeline IR.
//
// Analyses are declared under top-level `analysis:` fields, datasets under
// `dataset:` fields. Each step is a single-key struct naming the verb, e.g.
//
//	analysis: volcano: {
//		dataset: "de_results"
//		steps: [
//			{filter: {cmp: {col: "adj_p", op: "lt", value: 0.05}}},
//			{mutate: {col: "neg_log10_p", expr: {fn: "neg", arg: {fn: "log10", arg: {column: "adj_p"}}}}},
//		]
//		output: "chart"
//		chart: {type: "scatter", x: "logFC", y: "neg_log10_p", title: "Volcano"}
//	}
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/pipeline"
)

// CompileAnalysis parses a CUE value into a pipeline.Analysis.
// The CUE value is the analysis struct itself; its label becomes the name:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`analysis: volcano: { ... }`)
//	a, err := CompileAnalysis(v.LookupPath(cue.ParsePath("analysis.volcano")))
func CompileAnalysis(v cue.Value) (*pipeline.Analysis, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	a := &pipeline.Analysis{}

	// Analysis name from the struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		a.Name = labels[len(labels)-1].String()
	}

	dataset, err := requiredString(v, "dataset")
	if err != nil {
		return nil, err
	}
	a.Dataset = dataset

	stepsVal := v.LookupPath(cue.ParsePath("steps"))
	if stepsVal.Exists() {
		iter, err := stepsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			step, err := CompileStep(iter.Value())
			if err != nil {
				return nil, prefixField(err, fmt.Sprintf("steps[%d]", i))
			}
			a.Steps = append(a.Steps, step)
		}
	}

	a.Output = pipeline.OutputTable
	if out, ok, err := optionalString(v, "output"); err != nil {
		return nil, err
	} else if ok {
		a.Output = pipeline.Output(out)
	}

	chartVal := v.LookupPath(cue.ParsePath("chart"))
	if chartVal.Exists() {
		chart, err := compileChart(chartVal)
		if err != nil {
			return nil, err
		}
		a.Chart = chart
	}

	testVal := v.LookupPath(cue.ParsePath("test"))
	if testVal.Exists() {
		test, err := compileTest(testVal)
		if err != nil {
			return nil, err
		}
		a.Test = test
	}

	if golden, ok, err := optionalString(v, "golden"); err != nil {
		return nil, err
	} else if ok {
		a.Golden = golden
	}

	if errs := a.Validate(); len(errs) > 0 {
		return nil, &CompileError{
			Field:   errs[0].Path,
			Message: errs[0].Message,
			Pos:     v.Pos(),
		}
	}
	return a, nil
}

// DatasetSpec declares where a named dataset's source file lives.
type DatasetSpec struct {
	Name   string
	Path   string
	Format string   // "csv" or "tsv"; inferred from the path when empty
	NA     []string // extra NA markers beyond the defaults
}

// CompileDataset parses a CUE value into a DatasetSpec.
func CompileDataset(v cue.Value) (*DatasetSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &DatasetSpec{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	path, err := requiredString(v, "path")
	if err != nil {
		return nil, err
	}
	spec.Path = path

	if format, ok, err := optionalString(v, "format"); err != nil {
		return nil, err
	} else if ok {
		if format != "csv" && format != "tsv" {
			return nil, &CompileError{
				Field:   "format",
				Message: fmt.Sprintf("unknown format %q (want csv or tsv)", format),
				Pos:     v.Pos(),
			}
		}
		spec.Format = format
	}

	naVal := v.LookupPath(cue.ParsePath("na"))
	if naVal.Exists() {
		iter, err := naVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			s, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			spec.NA = append(spec.NA, s)
		}
	}

	return spec, nil
}

// CompileStep parses one single-key step struct.
func CompileStep(v cue.Value) (pipeline.Step, error) {
	label, body, err := singleField(v, "step")
	if err != nil {
		return nil, err
	}

	switch label {
	case "select":
		cols, err := stringList(body, "cols")
		if err != nil {
			return nil, err
		}
		return pipeline.Select{Cols: cols}, nil

	case "rename":
		mappingVal := body.LookupPath(cue.ParsePath("mapping"))
		if !mappingVal.Exists() {
			return nil, missing(body, "rename", "mapping")
		}
		iter, err := mappingVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		mapping := make(map[string]string)
		for iter.Next() {
			to, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			mapping[iter.Selector().Unquoted()] = to
		}
		return pipeline.Rename{Mapping: mapping}, nil

	case "filter":
		pred, err := CompilePredicate(body)
		if err != nil {
			return nil, err
		}
		return pipeline.Filter{Pred: pred}, nil

	case "mutate":
		col, err := requiredString(body, "col")
		if err != nil {
			return nil, err
		}
		exprVal := body.LookupPath(cue.ParsePath("expr"))
		if !exprVal.Exists() {
			return nil, missing(body, "mutate", "expr")
		}
		expr, err := CompileExpr(exprVal)
		if err != nil {
			return nil, err
		}
		return pipeline.Mutate{Col: col, Expr: expr}, nil

	case "arrange":
		keysVal := body.LookupPath(cue.ParsePath("keys"))
		if !keysVal.Exists() {
			return nil, missing(body, "arrange", "keys")
		}
		iter, err := keysVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var keys []pipeline.SortKey
		for iter.Next() {
			kv := iter.Value()
			col, err := requiredString(kv, "col")
			if err != nil {
				return nil, err
			}
			key := pipeline.SortKey{Col: col}
			descVal := kv.LookupPath(cue.ParsePath("desc"))
			if descVal.Exists() {
				key.Desc, err = descVal.Bool()
				if err != nil {
					return nil, formatCUEError(err)
				}
			}
			keys = append(keys, key)
		}
		return pipeline.Arrange{Keys: keys}, nil

	case "distinct":
		cols, err := optionalStringList(body, "cols")
		if err != nil {
			return nil, err
		}
		return pipeline.Distinct{Cols: cols}, nil

	case "head":
		nVal := body.LookupPath(cue.ParsePath("n"))
		if !nVal.Exists() {
			return nil, missing(body, "head", "n")
		}
		n, err := nVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return pipeline.Head{N: int(n)}, nil

	case "count":
		cols, err := stringList(body, "cols")
		if err != nil {
			return nil, err
		}
		return pipeline.Count{Cols: cols}, nil

	case "summarize":
		by, err := optionalStringList(body, "by")
		if err != nil {
			return nil, err
		}
		aggsVal := body.LookupPath(cue.ParsePath("aggs"))
		if !aggsVal.Exists() {
			return nil, missing(body, "summarize", "aggs")
		}
		iter, err := aggsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var aggs []pipeline.Agg
		for iter.Next() {
			av := iter.Value()
			out, err := requiredString(av, "out")
			if err != nil {
				return nil, err
			}
			fn, err := requiredString(av, "fn")
			if err != nil {
				return nil, err
			}
			agg := pipeline.Agg{Out: out, Fn: fn}
			if of, ok, err := optionalString(av, "of"); err != nil {
				return nil, err
			} else if ok {
				agg.Of = of
			}
			aggs = append(aggs, agg)
		}
		return pipeline.Summarize{GroupBy: by, Aggs: aggs}, nil

	case "join":
		with, err := requiredString(body, "with")
		if err != nil {
			return nil, err
		}
		by, err := stringList(body, "by")
		if err != nil {
			return nil, err
		}
		kind := "left"
		if k, ok, err := optionalString(body, "kind"); err != nil {
			return nil, err
		} else if ok {
			kind = k
		}
		return pipeline.Join{With: with, By: by, Kind: kind}, nil

	case "pivot_longer":
		id, err := stringList(body, "id")
		if err != nil {
			return nil, err
		}
		namesTo, err := requiredString(body, "names_to")
		if err != nil {
			return nil, err
		}
		valuesTo, err := requiredString(body, "values_to")
		if err != nil {
			return nil, err
		}
		return pipeline.PivotLonger{IDCols: id, NamesTo: namesTo, ValuesTo: valuesTo}, nil

	case "pivot_wider":
		namesFrom, err := requiredString(body, "names_from")
		if err != nil {
			return nil, err
		}
		valuesFrom, err := requiredString(body, "values_from")
		if err != nil {
			return nil, err
		}
		return pipeline.PivotWider{NamesFrom: namesFrom, ValuesFrom: valuesFrom}, nil

	default:
		return nil, &CompileError{
			Field:   "step",
			Message: fmt.Sprintf("unknown step %q", label),
			Pos:     v.Pos(),
		}
	}
}

// CompilePredicate parses a single-key predicate struct.
func CompilePredicate(v cue.Value) (pipeline.Predicate, error) {
	label, body, err := singleField(v, "predicate")
	if err != nil {
		return nil, err
	}

	switch label {
	case "eq":
		col, err := requiredString(body, "col")
		if err != nil {
			return nil, err
		}
		value, err := literalValue(body.LookupPath(cue.ParsePath("value")))
		if err != nil {
			return nil, err
		}
		return pipeline.Equals{Col: col, Value: value}, nil

	case "in":
		col, err := requiredString(body, "col")
		if err != nil {
			return nil, err
		}
		valuesVal := body.LookupPath(cue.ParsePath("values"))
		if !valuesVal.Exists() {
			return nil, missing(body, "in", "values")
		}
		iter, err := valuesVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var values []ir.Value
		for iter.Next() {
			value, err := literalValue(iter.Value())
			if err != nil {
				return nil, err
			}
			values = append(values, value)
		}
		return pipeline.In{Col: col, Values: values}, nil

	case "cmp":
		col, err := requiredString(body, "col")
		if err != nil {
			return nil, err
		}
		op, err := requiredString(body, "op")
		if err != nil {
			return nil, err
		}
		value, err := literalValue(body.LookupPath(cue.ParsePath("value")))
		if err != nil {
			return nil, err
		}
		return pipeline.Cmp{Col: col, Op: op, Value: value}, nil

	case "not":
		inner, err := CompilePredicate(body)
		if err != nil {
			return nil, err
		}
		return pipeline.Not{Pred: inner}, nil

	case "and", "or":
		iter, err := body.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var preds []pipeline.Predicate
		for iter.Next() {
			inner, err := CompilePredicate(iter.Value())
			if err != nil {
				return nil, err
			}
			preds = append(preds, inner)
		}
		if label == "and" {
			return pipeline.And{Preds: preds}, nil
		}
		return pipeline.Or{Preds: preds}, nil

	default:
		return nil, &CompileError{
			Field:   "predicate",
			Message: fmt.Sprintf("unknown predicate %q", label),
			Pos:     v.Pos(),
		}
	}
}

// CompileExpr parses a mutate expression struct: {column: ...}, {lit: ...},
// {op: ..., l: ..., r: ...} or {fn: ..., arg: ...}.
func CompileExpr(v cue.Value) (pipeline.Expr, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	if colVal := v.LookupPath(cue.ParsePath("column")); colVal.Exists() {
		name, err := colVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return pipeline.ColRef{Name: name}, nil
	}

	if litVal := v.LookupPath(cue.ParsePath("lit")); litVal.Exists() {
		f, err := litVal.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return pipeline.Lit{Value: f}, nil
	}

	if opVal := v.LookupPath(cue.ParsePath("op")); opVal.Exists() {
		op, err := opVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		lVal := v.LookupPath(cue.ParsePath("l"))
		rVal := v.LookupPath(cue.ParsePath("r"))
		if !lVal.Exists() || !rVal.Exists() {
			return nil, missing(v, "expr", "l and r")
		}
		l, err := CompileExpr(lVal)
		if err != nil {
			return nil, err
		}
		r, err := CompileExpr(rVal)
		if err != nil {
			return nil, err
		}
		return pipeline.BinaryExpr{Op: op, L: l, R: r}, nil
	}

	if fnVal := v.LookupPath(cue.ParsePath("fn")); fnVal.Exists() {
		fn, err := fnVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		argVal := v.LookupPath(cue.ParsePath("arg"))
		if !argVal.Exists() {
			return nil, missing(v, "expr", "arg")
		}
		arg, err := CompileExpr(argVal)
		if err != nil {
			return nil, err
		}
		return pipeline.Call{Fn: fn, X: arg}, nil
	}

	return nil, &CompileError{
		Field:   "expr",
		Message: "expression needs one of: column, lit, op, fn",
		Pos:     v.Pos(),
	}
}

func compileChart(v cue.Value) (*pipeline.ChartSpec, error) {
	chart := &pipeline.ChartSpec{}
	var err error
	if chart.Type, err = requiredString(v, "type"); err != nil {
		return nil, err
	}
	if chart.X, err = requiredString(v, "x"); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"y", &chart.Y}, {"series", &chart.Series}, {"title", &chart.Title},
	} {
		if s, ok, err := optionalString(v, f.name); err != nil {
			return nil, err
		} else if ok {
			*f.dst = s
		}
	}
	return chart, nil
}

func compileTest(v cue.Value) (*pipeline.TestSpec, error) {
	test := &pipeline.TestSpec{}
	var err error
	if test.Method, err = requiredString(v, "method"); err != nil {
		return nil, err
	}
	if test.Rows, err = requiredString(v, "rows"); err != nil {
		return nil, err
	}
	if test.Cols, err = requiredString(v, "cols"); err != nil {
		return nil, err
	}
	return test, nil
}

// literalValue converts a concrete CUE scalar into an ir.Value.
func literalValue(v cue.Value) (ir.Value, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "value", Message: "value is required", Pos: v.Pos()}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(i), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Float(f), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("unsupported literal kind %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// singleField returns the label and body of a single-key struct.
func singleField(v cue.Value, what string) (string, cue.Value, error) {
	if err := v.Err(); err != nil {
		return "", cue.Value{}, formatCUEError(err)
	}
	iter, err := v.Fields()
	if err != nil {
		return "", cue.Value{}, formatCUEError(err)
	}
	if !iter.Next() {
		return "", cue.Value{}, &CompileError{
			Field:   what,
			Message: fmt.Sprintf("%s struct is empty", what),
			Pos:     v.Pos(),
		}
	}
	label, body := iter.Selector().Unquoted(), iter.Value()
	if iter.Next() {
		return "", cue.Value{}, &CompileError{
			Field:   what,
			Message: fmt.Sprintf("%s struct must have exactly one field", what),
			Pos:     v.Pos(),
		}
	}
	return label, body, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: fmt.Sprintf("%s is required", field),
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("%s is required", field),
			Pos:     v.Pos(),
		}
	}
	return decodeStringList(fv)
}

func optionalStringList(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	return decodeStringList(fv)
}

func decodeStringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func missing(v cue.Value, in, field string) error {
	return &CompileError{
		Field:   in + "." + field,
		Message: fmt.Sprintf("%s is required", field),
		Pos:     v.Pos(),
	}
}

// prefixField adds list-position context to a CompileError field.
func prefixField(err error, prefix string) error {
	if ce, ok := err.(*CompileError); ok {
		return &CompileError{
			Field:   prefix + "." + ce.Field,
			Message: ce.Message,
			Pos:     ce.Pos,
		}
	}
	return err
}
