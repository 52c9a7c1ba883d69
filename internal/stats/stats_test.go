package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

// membership builds a gene table with a TF-family flag and a DE-significance
// flag, the shape of an overrepresentation test input.
func membership(t *testing.T, counts [2][2]int) *table.Table {
	t.Helper()
	tbl := table.MustNew(
		[]string{"in_family", "significant"},
		[]table.Kind{table.KindBool, table.KindBool},
	)
	levels := []ir.Bool{true, false}
	for i, rl := range levels {
		for j, cl := range levels {
			for k := 0; k < counts[i][j]; k++ {
				require.NoError(t, tbl.AppendRow(rl, cl))
			}
		}
	}
	return tbl
}

func TestCrosstab(t *testing.T) {
	tbl := table.MustNew(
		[]string{"family", "significant"},
		[]table.Kind{table.KindString, table.KindBool},
	)
	rows := []struct {
		fam ir.Value
		sig ir.Value
	}{
		{ir.String("bZIP"), ir.Bool(true)},
		{ir.String("bZIP"), ir.Bool(false)},
		{ir.String("homeobox"), ir.Bool(true)},
		{ir.String("bZIP"), ir.Bool(true)},
		// Incomplete observations, excluded from the crosstab
		{ir.Null{}, ir.Bool(true)},
		{ir.String("homeobox"), ir.Null{}},
	}
	for _, r := range rows {
		require.NoError(t, tbl.AppendRow(r.fam, r.sig))
	}

	ct, err := Crosstab(tbl, "family", "significant")
	require.NoError(t, err)
	assert.Equal(t, []string{"bZIP", "homeobox"}, ct.RowLevels)
	assert.Equal(t, []string{"true", "false"}, ct.ColLevels)
	assert.Equal(t, [][]int{{2, 1}, {1, 0}}, ct.Counts)
	assert.Equal(t, []int{3, 1}, ct.RowTotals)
	assert.Equal(t, []int{3, 1}, ct.ColTotals)
	assert.Equal(t, 4, ct.N)
}

func TestCrosstab_Errors(t *testing.T) {
	tbl := table.MustNew([]string{"a", "b"}, []table.Kind{table.KindString, table.KindString})
	require.NoError(t, tbl.AppendRow(ir.Null{}, ir.String("x")))

	_, err := Crosstab(tbl, "a", "a")
	require.Error(t, err)

	_, err = Crosstab(tbl, "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no complete observations")
}

func TestCrosstab_ToTable(t *testing.T) {
	ct, err := Crosstab(membership(t, [2][2]int{{3, 1}, {1, 3}}), "in_family", "significant")
	require.NoError(t, err)

	out, err := ct.ToTable()
	require.NoError(t, err)
	assert.Equal(t, []string{"in_family", "true", "false"}, out.Header())
	require.Equal(t, 2, out.NumRows())
	assert.Equal(t, ir.Int(3), out.Value(0, 1))
	assert.Equal(t, ir.Int(3), out.Value(1, 2))
}

func TestChiSquare_2x2WithYates(t *testing.T) {
	ct, err := Crosstab(membership(t, [2][2]int{{10, 20}, {30, 40}}), "in_family", "significant")
	require.NoError(t, err)

	res, err := ChiSquareTest(ct)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DF)
	assert.True(t, res.Yates)
	assert.InDelta(t, 0.44643, res.Statistic, 1e-4)
	assert.InDelta(t, 0.5040, res.PValue, 1e-3)
	assert.InDelta(t, 12.0, res.Expected[0][0], 1e-9)
}

func TestChiSquare_3x2NoYates(t *testing.T) {
	ct := &ContingencyTable{
		RowLevels: []string{"a", "b", "c"},
		ColLevels: []string{"x", "y"},
		Counts:    [][]int{{10, 20}, {20, 10}, {15, 15}},
		RowTotals: []int{30, 30, 30},
		ColTotals: []int{45, 45},
		N:         90,
	}
	res, err := ChiSquareTest(ct)
	require.NoError(t, err)
	assert.False(t, res.Yates)
	assert.Equal(t, 2, res.DF)
	assert.InDelta(t, 6.66667, res.Statistic, 1e-4)
	assert.InDelta(t, 0.035674, res.PValue, 1e-5)
}

func TestChiSquare_Degenerate(t *testing.T) {
	ct := &ContingencyTable{
		RowLevels: []string{"a", "b"},
		ColLevels: []string{"x", "y"},
		Counts:    [][]int{{1, 1}, {1, 0}},
		RowTotals: []int{2, 1},
		ColTotals: []int{2, 1},
		N:         3,
	}
	_, err := ChiSquareTest(ct)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Fisher")

	zero := &ContingencyTable{
		RowLevels: []string{"a", "b"},
		ColLevels: []string{"x", "y"},
		Counts:    [][]int{{1, 0}, {2, 0}},
		RowTotals: []int{1, 2},
		ColTotals: []int{3, 0},
		N:         3,
	}
	_, err = ChiSquareTest(zero)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero margin")
}

func TestFisherExact_TeaTasting(t *testing.T) {
	ct, err := Crosstab(membership(t, [2][2]int{{3, 1}, {1, 3}}), "in_family", "significant")
	require.NoError(t, err)

	res, err := FisherExact(ct)
	require.NoError(t, err)
	assert.InDelta(t, 0.485714, res.PValue, 1e-5)
	assert.InDelta(t, 9.0, res.OddsRatio, 1e-9)
}

func TestFisherExact_ZeroCellOdds(t *testing.T) {
	ct, err := Crosstab(membership(t, [2][2]int{{4, 1}, {1, 4}}), "in_family", "significant")
	require.NoError(t, err)
	res, err := FisherExact(ct)
	require.NoError(t, err)
	assert.False(t, math.IsInf(res.OddsRatio, 1))

	ct2, err := Crosstab(membership(t, [2][2]int{{4, 1}, {1, 0}}), "in_family", "significant")
	require.NoError(t, err)
	res2, err := FisherExact(ct2)
	require.NoError(t, err)
	assert.True(t, res2.PValue > 0 && res2.PValue <= 1)
}

func TestFisherExact_Non2x2(t *testing.T) {
	ct := &ContingencyTable{
		RowLevels: []string{"a", "b", "c"},
		ColLevels: []string{"x", "y"},
	}
	_, err := FisherExact(ct)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chi-square")
}

func TestDescribe(t *testing.T) {
	tbl := table.MustNew([]string{"x"}, []table.Kind{table.KindFloat})
	for i := 9; i >= 1; i-- {
		require.NoError(t, tbl.AppendRow(ir.Float(float64(i))))
	}
	require.NoError(t, tbl.AppendRow(ir.Null{}))

	s, err := Describe(tbl, "x")
	require.NoError(t, err)
	assert.Equal(t, 9, s.N)
	assert.Equal(t, 1, s.NA)
	assert.InDelta(t, 5.0, s.Mean, 1e-12)
	assert.InDelta(t, 2.73861, s.SD, 1e-4)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 3.0, s.Q1)
	assert.Equal(t, 5.0, s.Median)
	assert.Equal(t, 7.0, s.Q3)
	assert.Equal(t, 9.0, s.Max)
}

func TestDescribe_InterpolatedQuartiles(t *testing.T) {
	tbl := table.MustNew([]string{"x"}, []table.Kind{table.KindInt})
	for _, v := range []int{1, 2, 3, 4} {
		require.NoError(t, tbl.AppendRow(ir.Int(v)))
	}
	s, err := Describe(tbl, "x")
	require.NoError(t, err)
	assert.InDelta(t, 1.75, s.Q1, 1e-12)
	assert.InDelta(t, 2.5, s.Median, 1e-12)
	assert.InDelta(t, 3.25, s.Q3, 1e-12)
}

func TestDescribe_Errors(t *testing.T) {
	tbl := table.MustNew([]string{"s", "x"}, []table.Kind{table.KindString, table.KindFloat})
	require.NoError(t, tbl.AppendRow(ir.String("a"), ir.Null{}))

	_, err := Describe(tbl, "s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "numeric")

	_, err = Describe(tbl, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no non-NA values")
}
