package verbs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

func genesAndFamilies(t *testing.T) (*table.Table, *table.Table) {
	t.Helper()
	genes := table.MustNew([]string{"gene_id", "logFC"}, []table.Kind{table.KindString, table.KindFloat})
	for _, row := range []struct {
		id string
		fc float64
	}{
		{"ENSG01", -1.24}, {"ENSG02", 2.05}, {"ENSG03", 0.12},
	} {
		require.NoError(t, genes.AppendRow(ir.String(row.id), ir.Float(row.fc)))
	}

	families := table.MustNew([]string{"gene_id", "family"}, []table.Kind{table.KindString, table.KindString})
	for _, row := range [][2]string{
		{"ENSG01", "p53-like"},
		{"ENSG02", "bHLH"},
		{"ENSG02", "bHLH-ZIP"}, // second family for the same gene
		{"ENSG09", "homeobox"},
	} {
		require.NoError(t, families.AppendRow(ir.String(row[0]), ir.String(row[1])))
	}
	return genes, families
}

func TestLeftJoin(t *testing.T) {
	genes, families := genesAndFamilies(t)
	got, err := LeftJoin(genes, families, "gene_id")
	require.NoError(t, err)

	assert.Equal(t, []string{"gene_id", "logFC", "family"}, got.Header())
	// ENSG01 x1, ENSG02 x2 (multiplicity), ENSG03 unmatched but kept
	require.Equal(t, 4, got.NumRows())
	assert.Equal(t, ir.String("p53-like"), got.Value(0, 2))
	assert.Equal(t, ir.String("bHLH"), got.Value(1, 2))
	assert.Equal(t, ir.String("bHLH-ZIP"), got.Value(2, 2))
	assert.Equal(t, ir.Null{}, got.Value(3, 2))
}

func TestInnerJoin(t *testing.T) {
	genes, families := genesAndFamilies(t)
	got, err := InnerJoin(genes, families, "gene_id")
	require.NoError(t, err)
	require.Equal(t, 3, got.NumRows()) // ENSG03 dropped, ENSG09 never appears
	for r := 0; r < got.NumRows(); r++ {
		assert.False(t, ir.IsNull(got.Value(r, 2)))
	}
}

func TestJoin_CollisionSuffix(t *testing.T) {
	left := table.MustNew([]string{"gene_id", "score"}, []table.Kind{table.KindString, table.KindFloat})
	require.NoError(t, left.AppendRow(ir.String("ENSG01"), ir.Float(1)))
	right := table.MustNew([]string{"gene_id", "score"}, []table.Kind{table.KindString, table.KindFloat})
	require.NoError(t, right.AppendRow(ir.String("ENSG01"), ir.Float(2)))

	got, err := LeftJoin(left, right, "gene_id")
	require.NoError(t, err)
	assert.Equal(t, []string{"gene_id", "score", "score.y"}, got.Header())
	assert.Equal(t, ir.Float(2), got.Value(0, 2))
}

func TestJoin_KeyKindMismatch(t *testing.T) {
	left := table.MustNew([]string{"gene_id"}, []table.Kind{table.KindString})
	right := table.MustNew([]string{"gene_id"}, []table.Kind{table.KindInt})
	_, err := LeftJoin(left, right, "gene_id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "string on the left but int")
}

func TestJoin_MissingKeyColumn(t *testing.T) {
	genes, families := genesAndFamilies(t)
	_, err := LeftJoin(genes, families, "symbol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "left table")
}
