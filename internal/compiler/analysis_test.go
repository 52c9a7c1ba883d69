package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/pipeline"
)

func compileAt(t *testing.T, src, path string) cue.Value {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	out := v.LookupPath(cue.ParsePath(path))
	require.True(t, out.Exists(), "path %s not found", path)
	return out
}

func TestCompileAnalysis(t *testing.T) {
	src := `
analysis: volcano: {
	dataset: "de_results"
	steps: [
		{filter: {cmp: {col: "adj_p", op: "lt", value: 0.05}}},
		{mutate: {col: "neg_log10_p", expr: {fn: "neg", arg: {fn: "log10", arg: {column: "adj_p"}}}}},
		{arrange: {keys: [{col: "neg_log10_p", desc: true}]}},
	]
	output: "chart"
	chart: {type: "scatter", x: "logFC", y: "neg_log10_p", title: "Volcano"}
}
`
	a, err := CompileAnalysis(compileAt(t, src, "analysis.volcano"))
	require.NoError(t, err)

	assert.Equal(t, "volcano", a.Name)
	assert.Equal(t, "de_results", a.Dataset)
	assert.Equal(t, pipeline.OutputChart, a.Output)
	require.Len(t, a.Steps, 3)

	filter, ok := a.Steps[0].(pipeline.Filter)
	require.True(t, ok)
	cmp, ok := filter.Pred.(pipeline.Cmp)
	require.True(t, ok)
	assert.Equal(t, "adj_p", cmp.Col)
	assert.Equal(t, pipeline.OpLt, cmp.Op)
	assert.Equal(t, ir.Float(0.05), cmp.Value)

	mutate, ok := a.Steps[1].(pipeline.Mutate)
	require.True(t, ok)
	assert.Equal(t, "neg_log10_p", mutate.Col)
	outer, ok := mutate.Expr.(pipeline.Call)
	require.True(t, ok)
	assert.Equal(t, pipeline.FnNeg, outer.Fn)
	inner, ok := outer.X.(pipeline.Call)
	require.True(t, ok)
	assert.Equal(t, pipeline.FnLog10, inner.Fn)

	arrange, ok := a.Steps[2].(pipeline.Arrange)
	require.True(t, ok)
	require.Len(t, arrange.Keys, 1)
	assert.True(t, arrange.Keys[0].Desc)

	require.NotNil(t, a.Chart)
	assert.Equal(t, "scatter", a.Chart.Type)
	assert.Equal(t, "logFC", a.Chart.X)
}

func TestCompileAnalysis_DefaultOutput(t *testing.T) {
	src := `analysis: top: {dataset: "d", steps: [{head: {n: 5}}]}`
	a, err := CompileAnalysis(compileAt(t, src, "analysis.top"))
	require.NoError(t, err)
	assert.Equal(t, pipeline.OutputTable, a.Output)
	head, ok := a.Steps[0].(pipeline.Head)
	require.True(t, ok)
	assert.Equal(t, 5, head.N)
}

func TestCompileAnalysis_Test(t *testing.T) {
	src := `
analysis: enrich: {
	dataset: "genes"
	test: {method: "fisher", rows: "in_pathway", cols: "significant"}
}
`
	a, err := CompileAnalysis(compileAt(t, src, "analysis.enrich"))
	require.NoError(t, err)
	require.NotNil(t, a.Test)
	assert.Equal(t, "fisher", a.Test.Method)
	assert.Equal(t, "in_pathway", a.Test.Rows)
	assert.Equal(t, "significant", a.Test.Cols)
}

func TestCompileAnalysis_MissingDataset(t *testing.T) {
	src := `analysis: broken: {steps: []}`
	_, err := CompileAnalysis(compileAt(t, src, "analysis.broken"))
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "dataset", ce.Field)
}

func TestCompileAnalysis_ValidationFailure(t *testing.T) {
	// chart output without a chart spec fails analysis validation
	src := `analysis: broken: {dataset: "d", output: "chart"}`
	_, err := CompileAnalysis(compileAt(t, src, "analysis.broken"))
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "chart", ce.Field)
}

func TestCompileStep_AllVerbs(t *testing.T) {
	src := `
steps: [
	{select: {cols: ["gene_id", "logFC"]}},
	{rename: {mapping: {padj: "adj_p"}}},
	{distinct: {cols: ["symbol"]}},
	{count: {cols: ["direction"]}},
	{summarize: {by: ["family"], aggs: [{out: "mean_fc", fn: "mean", of: "logFC"}]}},
	{join: {with: "tf_families", by: ["symbol"], kind: "inner"}},
	{pivot_longer: {id: ["gene_id"], names_to: "sample", values_to: "count"}},
	{pivot_wider: {names_from: "sample", values_from: "count"}},
]
`
	v := compileAt(t, src, "steps")
	iter, err := v.List()
	require.NoError(t, err)

	var steps []pipeline.Step
	for iter.Next() {
		step, err := CompileStep(iter.Value())
		require.NoError(t, err)
		steps = append(steps, step)
	}
	require.Len(t, steps, 8)

	sel := steps[0].(pipeline.Select)
	assert.Equal(t, []string{"gene_id", "logFC"}, sel.Cols)

	ren := steps[1].(pipeline.Rename)
	assert.Equal(t, map[string]string{"padj": "adj_p"}, ren.Mapping)

	dist := steps[2].(pipeline.Distinct)
	assert.Equal(t, []string{"symbol"}, dist.Cols)

	cnt := steps[3].(pipeline.Count)
	assert.Equal(t, []string{"direction"}, cnt.Cols)

	sum := steps[4].(pipeline.Summarize)
	assert.Equal(t, []string{"family"}, sum.GroupBy)
	require.Len(t, sum.Aggs, 1)
	assert.Equal(t, pipeline.Agg{Out: "mean_fc", Fn: "mean", Of: "logFC"}, sum.Aggs[0])

	join := steps[5].(pipeline.Join)
	assert.Equal(t, "tf_families", join.With)
	assert.Equal(t, "inner", join.Kind)

	pl := steps[6].(pipeline.PivotLonger)
	assert.Equal(t, "sample", pl.NamesTo)
	assert.Equal(t, "count", pl.ValuesTo)

	pw := steps[7].(pipeline.PivotWider)
	assert.Equal(t, "sample", pw.NamesFrom)
}

func TestCompileStep_JoinDefaultsToLeft(t *testing.T) {
	v := compileAt(t, `step: {join: {with: "fams", by: ["symbol"]}}`, "step")
	step, err := CompileStep(v)
	require.NoError(t, err)
	assert.Equal(t, "left", step.(pipeline.Join).Kind)
}

func TestCompileStep_Unknown(t *testing.T) {
	v := compileAt(t, `step: {explode: {}}`, "step")
	_, err := CompileStep(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown step "explode"`)
}

func TestCompileStep_TwoKeys(t *testing.T) {
	v := compileAt(t, `step: {head: {n: 1}, distinct: {}}`, "step")
	_, err := CompileStep(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one field")
}

func TestCompilePredicate(t *testing.T) {
	src := `
pred: {and: [
	{eq: {col: "direction", value: "up"}},
	{in: {col: "symbol", values: ["TP53", "MYC"]}},
	{not: {cmp: {col: "logFC", op: "le", value: 0}}},
	{or: [
		{eq: {col: "flagged", value: true}},
		{eq: {col: "note", value: null}},
	]},
]}
`
	pred, err := CompilePredicate(compileAt(t, src, "pred"))
	require.NoError(t, err)

	and, ok := pred.(pipeline.And)
	require.True(t, ok)
	require.Len(t, and.Preds, 4)

	eq := and.Preds[0].(pipeline.Equals)
	assert.Equal(t, ir.String("up"), eq.Value)

	in := and.Preds[1].(pipeline.In)
	assert.Equal(t, []ir.Value{ir.String("TP53"), ir.String("MYC")}, in.Values)

	not := and.Preds[2].(pipeline.Not)
	cmp := not.Pred.(pipeline.Cmp)
	assert.Equal(t, pipeline.OpLe, cmp.Op)
	assert.Equal(t, ir.Int(0), cmp.Value)

	or := and.Preds[3].(pipeline.Or)
	require.Len(t, or.Preds, 2)
	assert.Equal(t, ir.Bool(true), or.Preds[0].(pipeline.Equals).Value)
	assert.Equal(t, ir.Null{}, or.Preds[1].(pipeline.Equals).Value)
}

func TestCompileExpr(t *testing.T) {
	src := `expr: {op: "div", l: {column: "count"}, r: {lit: 2.5}}`
	expr, err := CompileExpr(compileAt(t, src, "expr"))
	require.NoError(t, err)

	bin, ok := expr.(pipeline.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, pipeline.OpDiv, bin.Op)
	assert.Equal(t, pipeline.ColRef{Name: "count"}, bin.L)
	assert.Equal(t, pipeline.Lit{Value: 2.5}, bin.R)
}

func TestCompileExpr_Empty(t *testing.T) {
	_, err := CompileExpr(compileAt(t, `expr: {}`, "expr"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one of: column, lit, op, fn")
}

func TestCompileDataset(t *testing.T) {
	src := `dataset: de_results: {path: "testdata/de_results.csv", format: "csv", na: ["-"]}`
	spec, err := CompileDataset(compileAt(t, src, "dataset.de_results"))
	require.NoError(t, err)
	assert.Equal(t, "de_results", spec.Name)
	assert.Equal(t, "testdata/de_results.csv", spec.Path)
	assert.Equal(t, "csv", spec.Format)
	assert.Equal(t, []string{"-"}, spec.NA)
}

func TestCompileDataset_BadFormat(t *testing.T) {
	src := `dataset: d: {path: "x.parquet", format: "parquet"}`
	_, err := CompileDataset(compileAt(t, src, "dataset.d"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "parquet"`)
}

func TestCompileError_Position(t *testing.T) {
	ce := &CompileError{Field: "dataset", Message: "dataset is required"}
	assert.Equal(t, "dataset: dataset is required", ce.Error())
}
