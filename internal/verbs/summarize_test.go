package verbs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/pipeline"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

func countsLong(t *testing.T) *table.Table {
	t.Helper()
	const tsv = "gene_id\tsample\tcount\n" +
		"ENSG01\tctrl_1\t100\n" +
		"ENSG01\tctrl_2\t120\n" +
		"ENSG01\ttreat_1\t300\n" +
		"ENSG02\tctrl_1\t50\n" +
		"ENSG02\tctrl_2\tNA\n" +
		"ENSG02\ttreat_1\t80\n"
	tbl, err := table.ReadDelim(strings.NewReader(tsv), table.ReadOptions{Comma: '\t'})
	require.NoError(t, err)
	return tbl
}

func TestSummarize_GroupOrderAndAggs(t *testing.T) {
	got, err := Summarize(countsLong(t), []string{"gene_id"}, []pipeline.Agg{
		{Out: "total", Fn: "sum", Of: "count"},
		{Out: "mean_count", Fn: "mean", Of: "count"},
		{Out: "n", Fn: "count"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"gene_id", "total", "mean_count", "n"}, got.Header())
	require.Equal(t, 2, got.NumRows())

	// First appearance order: ENSG01 then ENSG02
	assert.Equal(t, ir.String("ENSG01"), got.Value(0, 0))
	assert.Equal(t, ir.Float(520), got.Value(0, 1))

	// NA skipped: ENSG02 mean over {50, 80}
	assert.Equal(t, ir.Float(65), got.Value(1, 2))
	// count counts rows, not non-NA cells
	assert.Equal(t, ir.Int(3), got.Value(1, 3))
}

func TestSummarize_WholeTableWhenNoGroups(t *testing.T) {
	got, err := Summarize(countsLong(t), nil, []pipeline.Agg{
		{Out: "grand_total", Fn: "sum", Of: "count"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, got.NumRows())
	assert.Equal(t, ir.Float(650), got.Value(0, 0))
}

func TestSummarize_MedianAndSd(t *testing.T) {
	tbl := table.MustNew([]string{"grp", "x"}, []table.Kind{table.KindString, table.KindFloat})
	for _, v := range []float64{4, 1, 3, 2} {
		require.NoError(t, tbl.AppendRow(ir.String("a"), ir.Float(v)))
	}
	require.NoError(t, tbl.AppendRow(ir.String("b"), ir.Float(9)))

	got, err := Summarize(tbl, []string{"grp"}, []pipeline.Agg{
		{Out: "med", Fn: "median", Of: "x"},
		{Out: "spread", Fn: "sd", Of: "x"},
	})
	require.NoError(t, err)

	med, _ := got.Float(0, 1)
	assert.InDelta(t, 2.5, med, 1e-12) // even count interpolates
	sd, _ := got.Float(0, 2)
	assert.InDelta(t, 1.29099, sd, 1e-4) // sample sd of 1..4

	// Single value: sd undefined
	assert.Equal(t, ir.Null{}, got.Value(1, 2))
}

func TestSummarize_AllNAGroupYieldsNull(t *testing.T) {
	tbl := table.MustNew([]string{"grp", "x"}, []table.Kind{table.KindString, table.KindFloat})
	require.NoError(t, tbl.AppendRow(ir.String("a"), ir.Null{}))

	got, err := Summarize(tbl, []string{"grp"}, []pipeline.Agg{{Out: "m", Fn: "mean", Of: "x"}})
	require.NoError(t, err)
	assert.Equal(t, ir.Null{}, got.Value(0, 1))
}

func TestSummarize_NonNumericInputRejected(t *testing.T) {
	_, err := Summarize(countsLong(t), []string{"gene_id"}, []pipeline.Agg{
		{Out: "m", Fn: "mean", Of: "sample"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs a numeric column")
}

func TestSummarize_FirstKeepsInputKind(t *testing.T) {
	got, err := Summarize(countsLong(t), []string{"gene_id"}, []pipeline.Agg{
		{Out: "first_sample", Fn: "first", Of: "sample"},
	})
	require.NoError(t, err)
	assert.Equal(t, ir.String("ctrl_1"), got.Value(0, 1))
	kind, err := got.KindOf("first_sample")
	require.NoError(t, err)
	assert.Equal(t, table.KindString, kind)
}

func TestCountBy(t *testing.T) {
	got, err := CountBy(countsLong(t), "gene_id")
	require.NoError(t, err)
	assert.Equal(t, []string{"gene_id", "n"}, got.Header())
	require.Equal(t, 2, got.NumRows())
	assert.Equal(t, ir.Int(3), got.Value(0, 1))
}
