package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/pipeline"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

func volcanoTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.MustNew(
		[]string{"symbol", "logFC", "neg_log10_p", "status"},
		[]table.Kind{table.KindString, table.KindFloat, table.KindFloat, table.KindString},
	)
	rows := []struct {
		sym    string
		fc, nl float64
		status string
	}{
		{"TP53", -1.24, 2.4, "down"},
		{"MYC", 2.05, 4.1, "up"},
		{"SOX2", 0.12, 0.09, "ns"},
	}
	for _, r := range rows {
		require.NoError(t, tbl.AppendRow(
			ir.String(r.sym), ir.Float(r.fc), ir.Float(r.nl), ir.String(r.status)))
	}
	return tbl
}

func TestRenderText_SingleIntColumn(t *testing.T) {
	tbl := table.MustNew([]string{"n"}, []table.Kind{table.KindInt})
	require.NoError(t, tbl.AppendRow(ir.Int(1234)))

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, tbl, TextOptions{}))
	assert.Equal(t, "    n\n-----\n1,234\n", buf.String())
}

func TestRenderText_TruncationFooter(t *testing.T) {
	tbl := table.MustNew([]string{"symbol"}, []table.Kind{table.KindString})
	for _, s := range []string{"A", "B", "C"} {
		require.NoError(t, tbl.AppendRow(ir.String(s)))
	}

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, tbl, TextOptions{MaxRows: 2}))
	assert.Equal(t, "symbol\n------\nA\nB\n... 1 more rows\n", buf.String())
}

func TestRenderText_MixedKinds(t *testing.T) {
	tbl := table.MustNew(
		[]string{"symbol", "base_mean", "adj_p"},
		[]table.Kind{table.KindString, table.KindInt, table.KindFloat},
	)
	require.NoError(t, tbl.AppendRow(ir.String("MYC"), ir.Int(2400000), ir.Float(8.4e-05)))
	require.NoError(t, tbl.AppendRow(ir.String("NANOG"), ir.Null{}, ir.Null{}))

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, tbl, TextOptions{}))
	out := buf.String()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4) // header, rule, two rows
	assert.Contains(t, lines[2], "2,400,000")
	assert.Contains(t, lines[2], "8.4e-05")
	assert.Contains(t, lines[3], "NA")
	// Numeric columns right-align, so every line ends at the adj_p column.
	assert.True(t, strings.HasSuffix(lines[2], "8.4e-05"))
	assert.True(t, strings.HasSuffix(lines[3], "NA"))
}

func TestBuildChart_VolcanoScatterGolden(t *testing.T) {
	cfg, err := BuildChart(pipeline.ChartSpec{
		Type:   "scatter",
		X:      "logFC",
		Y:      "neg_log10_p",
		Series: "status",
		Title:  "Volcano",
	}, volcanoTable(t))
	require.NoError(t, err)

	require.True(t, cfg.NumericX)
	require.Len(t, cfg.Series, 3)
	assert.Equal(t, "down", cfg.Series[0].Name) // first appearance order

	data, err := ir.MarshalCanonical(cfg.Snapshot())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "volcano_scatter", data)
}

func TestBuildChart_SingleSeriesBar(t *testing.T) {
	tbl := table.MustNew(
		[]string{"family", "n"},
		[]table.Kind{table.KindString, table.KindInt},
	)
	require.NoError(t, tbl.AppendRow(ir.String("bZIP"), ir.Int(12)))
	require.NoError(t, tbl.AppendRow(ir.String("homeobox"), ir.Int(7)))

	cfg, err := BuildChart(pipeline.ChartSpec{Type: "bar", X: "family", Y: "n"}, tbl)
	require.NoError(t, err)
	require.Len(t, cfg.Series, 1)
	assert.Equal(t, "n", cfg.Series[0].Name)
	assert.False(t, cfg.NumericX)
	require.Len(t, cfg.Series[0].Points, 2)
	assert.Equal(t, "bZIP", cfg.Series[0].Points[0].Label)
	assert.Equal(t, 12.0, cfg.Series[0].Points[0].Y)
}

func TestBuildChart_SkipsNARows(t *testing.T) {
	tbl := table.MustNew(
		[]string{"x", "y"},
		[]table.Kind{table.KindString, table.KindFloat},
	)
	require.NoError(t, tbl.AppendRow(ir.String("a"), ir.Float(1)))
	require.NoError(t, tbl.AppendRow(ir.String("b"), ir.Null{}))

	cfg, err := BuildChart(pipeline.ChartSpec{Type: "bar", X: "x", Y: "y"}, tbl)
	require.NoError(t, err)
	require.Len(t, cfg.Series[0].Points, 1)
}

func TestBuildChart_Errors(t *testing.T) {
	tbl := volcanoTable(t)

	_, err := BuildChart(pipeline.ChartSpec{Type: "bar", X: "nope", Y: "logFC"}, tbl)
	require.Error(t, err)

	_, err = BuildChart(pipeline.ChartSpec{Type: "bar", X: "symbol", Y: "status"}, tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need numeric")

	empty := table.MustNew([]string{"x", "y"}, []table.Kind{table.KindString, table.KindFloat})
	_, err = BuildChart(pipeline.ChartSpec{Type: "bar", X: "x", Y: "y"}, empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no plottable rows")
}

func TestRenderHTML_AllTypes(t *testing.T) {
	tbl := volcanoTable(t)
	for _, typ := range []string{"bar", "line", "scatter", "box"} {
		cfg, err := BuildChart(pipeline.ChartSpec{
			Type: typ, X: "symbol", Y: "neg_log10_p", Title: "t",
		}, tbl)
		require.NoError(t, err, typ)

		var buf bytes.Buffer
		require.NoError(t, RenderHTML(&buf, cfg), typ)
		assert.Contains(t, buf.String(), "echarts", typ)
	}
}

func TestRenderHTML_UnsupportedType(t *testing.T) {
	err := RenderHTML(&bytes.Buffer{}, &ChartConfig{Type: "pie"})
	require.Error(t, err)
}
