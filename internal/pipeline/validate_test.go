package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-koetsier/tidyseq/internal/ir"
)

func validAnalysis() *Analysis {
	return &Analysis{
		Name:    "significant_genes",
		Dataset: "de_results",
		Steps: []Step{
			Filter{Pred: Cmp{Col: "adj.P.Val", Op: OpLt, Value: ir.Float(0.05)}},
			Arrange{Keys: []SortKey{{Col: "logFC", Desc: true}}},
			Select{Cols: []string{"gene_id", "symbol", "logFC"}},
		},
		Output: OutputTable,
	}
}

func TestValidate_OK(t *testing.T) {
	assert.Empty(t, validAnalysis().Validate())
}

func TestValidate_MissingNameAndDataset(t *testing.T) {
	a := &Analysis{}
	errs := a.Validate()
	require.Len(t, errs, 2)
	assert.Equal(t, "name", errs[0].Path)
	assert.Equal(t, "dataset", errs[1].Path)
}

func TestValidate_ChartWithoutSpec(t *testing.T) {
	a := validAnalysis()
	a.Output = OutputChart
	errs := a.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "chart", errs[0].Path)
}

func TestValidate_BadChartType(t *testing.T) {
	a := validAnalysis()
	a.Output = OutputChart
	a.Chart = &ChartSpec{Type: "pie", X: "symbol", Y: "logFC"}
	errs := a.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "chart.type", errs[0].Path)
	assert.Contains(t, errs[0].Message, "pie")
}

func TestValidate_StepPathsPointAtOffender(t *testing.T) {
	a := validAnalysis()
	a.Steps = append(a.Steps, Summarize{
		GroupBy: []string{"family"},
		Aggs:    []Agg{{Out: "mean_fc", Fn: "average", Of: "logFC"}},
	})
	errs := a.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "steps[3].summarize.aggs[0]", errs[0].Path)
	assert.Contains(t, errs[0].Message, "average")
}

func TestValidate_NestedPredicatePath(t *testing.T) {
	a := validAnalysis()
	a.Steps = []Step{
		Filter{Pred: And{Preds: []Predicate{
			Cmp{Col: "logFC", Op: OpGt, Value: ir.Float(1)},
			Cmp{Col: "adj.P.Val", Op: "below", Value: ir.Float(0.05)},
		}}},
	}
	errs := a.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "steps[0].filter.and[1]", errs[0].Path)
}

func TestValidate_JoinKind(t *testing.T) {
	a := validAnalysis()
	a.Steps = []Step{Join{With: "tf_families", By: []string{"gene_id"}, Kind: "outer"}}
	errs := a.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "steps[0].join.kind", errs[0].Path)
}

func TestValidate_TestSpec(t *testing.T) {
	a := validAnalysis()
	a.Test = &TestSpec{Method: "anova", Rows: "family", Cols: "significant"}
	errs := a.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "test.method", errs[0].Path)
}

func TestHash_StableAndSensitive(t *testing.T) {
	a := validAnalysis()
	h1, err := a.Hash()
	require.NoError(t, err)
	h2, err := validAnalysis().Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	b := validAnalysis()
	b.Steps[0] = Filter{Pred: Cmp{Col: "adj.P.Val", Op: OpLt, Value: ir.Float(0.01)}}
	h3, err := b.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestHash_GoldenFieldExcluded(t *testing.T) {
	a := validAnalysis()
	b := validAnalysis()
	b.Golden = "expected/significant_genes.csv"
	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}
