package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/pipeline"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

func miniDE(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.MustNew(
		[]string{"symbol", "adj_p"},
		[]table.Kind{table.KindString, table.KindFloat},
	)
	rows := []struct {
		sym string
		p   float64
	}{
		{"TP53", 0.0042}, {"MYC", 8.4e-05}, {"SOX2", 0.81},
	}
	for _, r := range rows {
		require.NoError(t, tbl.AppendRow(ir.String(r.sym), ir.Float(r.p)))
	}
	return tbl
}

func significantGenes(t *testing.T) *Exercise {
	t.Helper()
	return &Exercise{
		Name: "significant_genes",
		Analysis: pipeline.Analysis{
			Name:    "significant_genes",
			Dataset: "de_results",
			Output:  pipeline.OutputTable,
			Steps: []pipeline.Step{
				pipeline.Filter{Pred: pipeline.Cmp{Col: "adj_p", Op: pipeline.OpLt, Value: ir.Float(0.05)}},
				pipeline.Select{Cols: []string{"symbol", "adj_p"}},
			},
		},
		Datasets: map[string]*table.Table{"de_results": miniDE(t)},
	}
}

func TestRun(t *testing.T) {
	result, err := Run(significantGenes(t))
	require.NoError(t, err)

	require.NoError(t, RequireColumns(result.Table, "symbol", "adj_p"))
	require.NoError(t, RequireRowCount(result.Table, 2))
	require.NoError(t, RequireCell(result.Table, 0, "symbol", ir.String("TP53")))
	require.NoError(t, RequireCell(result.Table, 1, "symbol", ir.String("MYC")))
}

func TestRun_Errors(t *testing.T) {
	_, err := Run(nil)
	require.Error(t, err)

	_, err = Run(&Exercise{})
	require.Error(t, err)

	ex := significantGenes(t)
	ex.Datasets = nil
	_, err = Run(ex)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `exercise "significant_genes"`)
}

func TestRun_RespectsMaxRows(t *testing.T) {
	ex := significantGenes(t)
	ex.MaxRows = 1
	_, err := Run(ex)
	require.Error(t, err)
}

func TestRunWithGolden(t *testing.T) {
	require.NoError(t, RunWithGolden(t, significantGenes(t)))
}

func TestRequireColumns(t *testing.T) {
	tbl := miniDE(t)
	require.NoError(t, RequireColumns(tbl, "symbol", "adj_p"))

	err := RequireColumns(tbl, "symbol")
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "columns", ae.Type)

	err = RequireColumns(tbl, "adj_p", "symbol")
	require.Error(t, err)
}

func TestRequireRowCount(t *testing.T) {
	tbl := miniDE(t)
	require.NoError(t, RequireRowCount(tbl, 3))

	err := RequireRowCount(tbl, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "5 rows")
	assert.Contains(t, err.Error(), "3 rows")
}

func TestRequireCell(t *testing.T) {
	tbl := miniDE(t)
	require.NoError(t, RequireCell(tbl, 1, "adj_p", ir.Float(8.4e-05)))

	err := RequireCell(tbl, 1, "adj_p", ir.Float(0.5))
	require.Error(t, err)

	err = RequireCell(tbl, 9, "adj_p", ir.Float(0.5))
	require.Error(t, err)

	err = RequireCell(tbl, 0, "nope", ir.Float(0.5))
	require.Error(t, err)
}
