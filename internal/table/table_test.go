package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-koetsier/tidyseq/internal/ir"
)

func TestNew_DuplicateColumn(t *testing.T) {
	_, err := New([]string{"gene_id", "logFC", "gene_id"},
		[]Kind{KindString, KindFloat, KindString})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column name")
	assert.Contains(t, err.Error(), "gene_id")
}

func TestNew_HeaderKindMismatch(t *testing.T) {
	_, err := New([]string{"a", "b"}, []Kind{KindString})
	assert.Error(t, err)
}

func TestAppendRow_KindChecked(t *testing.T) {
	tbl := MustNew([]string{"gene_id", "count"}, []Kind{KindString, KindInt})

	require.NoError(t, tbl.AppendRow(ir.String("ENSG01"), ir.Int(12)))
	require.NoError(t, tbl.AppendRow(ir.String("ENSG02"), ir.Null{})) // NA fits anywhere

	err := tbl.AppendRow(ir.String("ENSG03"), ir.String("twelve"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "count"`)

	err = tbl.AppendRow(ir.String("ENSG04"))
	assert.Error(t, err) // arity
}

func TestAppendRow_IntWidensToFloat(t *testing.T) {
	tbl := MustNew([]string{"logFC"}, []Kind{KindFloat})
	require.NoError(t, tbl.AppendRow(ir.Int(2)))
	assert.Equal(t, ir.Float(2), tbl.Value(0, 0))
}

func TestCloneAndEqual(t *testing.T) {
	tbl := MustNew([]string{"gene_id", "p"}, []Kind{KindString, KindFloat})
	require.NoError(t, tbl.AppendRow(ir.String("TP53"), ir.Float(0.01)))

	cp := tbl.Clone()
	assert.True(t, tbl.Equal(cp))

	require.NoError(t, cp.AppendRow(ir.String("MYC"), ir.Float(0.2)))
	assert.False(t, tbl.Equal(cp))
	assert.Equal(t, 1, tbl.NumRows()) // original untouched
}

func TestFingerprint_Stable(t *testing.T) {
	tbl := MustNew([]string{"gene_id"}, []Kind{KindString})
	require.NoError(t, tbl.AppendRow(ir.String("SOX2")))

	fp1, err := tbl.Fingerprint()
	require.NoError(t, err)
	fp2, err := tbl.Clone().Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
}

func TestSnapshot(t *testing.T) {
	tbl := MustNew([]string{"gene_id", "count"}, []Kind{KindString, KindInt})
	require.NoError(t, tbl.AppendRow(ir.String("NANOG"), ir.Int(7)))

	got, err := ir.MarshalCanonical(tbl.Snapshot())
	require.NoError(t, err)
	assert.Equal(t,
		`{"header":["gene_id","count"],"kinds":["string","int"],"rows":[["NANOG",7]]}`,
		string(got))
}
