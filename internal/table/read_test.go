package table

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-koetsier/tidyseq/internal/ir"
)

const deResultsCSV = `gene_id,symbol,logFC,P.Value,adj.P.Val
ENSG00000141510,TP53,-1.24,0.00031,0.0042
ENSG00000136997,MYC,2.05,1.2e-06,8.4e-05
ENSG00000181449,SOX2,0.12,0.64,0.81
ENSG00000111704,NANOG,NA,NA,NA
`

func TestReadDelim_TypeInference(t *testing.T) {
	tbl, err := ReadDelim(strings.NewReader(deResultsCSV), ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"gene_id", "symbol", "logFC", "P.Value", "adj.P.Val"}, tbl.Header())
	assert.Equal(t, []Kind{KindString, KindString, KindFloat, KindFloat, KindFloat}, tbl.Kinds())
	assert.Equal(t, 4, tbl.NumRows())

	assert.Equal(t, ir.Float(-1.24), tbl.Value(0, 2))
	assert.Equal(t, ir.Float(1.2e-06), tbl.Value(1, 3))
	assert.Equal(t, ir.Null{}, tbl.Value(3, 2)) // NA token
}

func TestReadDelim_IntColumn(t *testing.T) {
	in := "gene_id\tsample\tcount\nENSG01\tctrl_1\t1500\nENSG01\ttreat_1\t2300\n"
	tbl, err := ReadDelim(strings.NewReader(in), ReadOptions{Comma: '\t'})
	require.NoError(t, err)

	assert.Equal(t, []Kind{KindString, KindString, KindInt}, tbl.Kinds())
	assert.Equal(t, ir.Int(2300), tbl.Value(1, 2))
}

func TestReadDelim_IntDemotesToFloatOnMixedColumn(t *testing.T) {
	in := "x\n1\n2.5\n"
	tbl, err := ReadDelim(strings.NewReader(in), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindFloat}, tbl.Kinds())
	assert.Equal(t, ir.Float(1), tbl.Value(0, 0))
}

func TestReadDelim_BoolColumn(t *testing.T) {
	in := "gene_id,significant\nTP53,true\nSOX2,false\nNANOG,NA\n"
	tbl, err := ReadDelim(strings.NewReader(in), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindString, KindBool}, tbl.Kinds())
	assert.Equal(t, ir.Bool(true), tbl.Value(0, 1))
	assert.Equal(t, ir.Null{}, tbl.Value(2, 1))
}

func TestReadDelim_CommentsSkipped(t *testing.T) {
	in := "# exported from limma topTable\ngene_id,logFC\nTP53,-1.2\n"
	tbl, err := ReadDelim(strings.NewReader(in), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.NumRows())
}

func TestReadDelim_AllNAColumnStaysString(t *testing.T) {
	in := "gene_id,note\nTP53,NA\nMYC,NA\n"
	tbl, err := ReadDelim(strings.NewReader(in), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindString, KindString}, tbl.Kinds())
}

func TestReadDelim_RaggedRow(t *testing.T) {
	in := "a,b\n1,2\n3\n"
	_, err := ReadDelim(strings.NewReader(in), ReadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3") // position reported
}

func TestReadDelim_DuplicateHeader(t *testing.T) {
	in := "gene_id,gene_id\nTP53,TP53\n"
	_, err := ReadDelim(strings.NewReader(in), ReadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column name")
}

func TestReadDelim_NoHeader(t *testing.T) {
	_, err := ReadDelim(strings.NewReader(""), ReadOptions{})
	assert.Error(t, err)
}

func TestWriteDelim_RoundTrip(t *testing.T) {
	tbl, err := ReadDelim(strings.NewReader(deResultsCSV), ReadOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteDelim(&buf, ','))

	again, err := ReadDelim(&buf, ReadOptions{})
	require.NoError(t, err)
	assert.True(t, tbl.Equal(again))
}

func TestWriteDelim_NullAsNA(t *testing.T) {
	tbl := MustNew([]string{"gene_id", "logFC"}, []Kind{KindString, KindFloat})
	require.NoError(t, tbl.AppendRow(ir.String("NANOG"), ir.Null{}))

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteDelim(&buf, ','))
	assert.Equal(t, "gene_id,logFC\nNANOG,NA\n", buf.String())
}

func TestDelimForPath(t *testing.T) {
	assert.Equal(t, ',', int32(DelimForPath("counts.csv")))
	assert.Equal(t, '\t', int32(DelimForPath("counts.tsv")))
	assert.Equal(t, '\t', int32(DelimForPath("tf_families.txt")))
}
