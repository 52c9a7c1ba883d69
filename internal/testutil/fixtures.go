// Package testutil provides shared fixtures for tidyseq tests: small typed
// tables, temp data files, and temp stores pre-loaded with datasets.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/store"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

// MustTable builds a table from literal rows, failing the test on any
// kind mismatch.
func MustTable(t *testing.T, header []string, kinds []table.Kind, rows [][]ir.Value) *table.Table {
	t.Helper()
	tbl := table.MustNew(header, kinds)
	for _, row := range rows {
		require.NoError(t, tbl.AppendRow(row...))
	}
	return tbl
}

// DEResults is a five-gene differential-expression fixture with one NA row,
// shaped like a DESeq2 results export.
func DEResults(t *testing.T) *table.Table {
	t.Helper()
	return MustTable(t,
		[]string{"gene_id", "symbol", "logFC", "adj_p"},
		[]table.Kind{table.KindString, table.KindString, table.KindFloat, table.KindFloat},
		[][]ir.Value{
			{ir.String("ENSG01"), ir.String("TP53"), ir.Float(-1.24), ir.Float(0.0042)},
			{ir.String("ENSG02"), ir.String("MYC"), ir.Float(2.05), ir.Float(8.4e-05)},
			{ir.String("ENSG03"), ir.String("SOX2"), ir.Float(0.12), ir.Float(0.81)},
			{ir.String("ENSG04"), ir.String("GATA3"), ir.Float(-0.88), ir.Float(0.012)},
			{ir.String("ENSG05"), ir.String("BRCA1"), ir.Null{}, ir.Null{}},
		},
	)
}

// WriteFile writes content to dir/name and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TempStore opens a store in a temp directory and ingests the given
// datasets. The store is closed when the test ends.
func TempStore(t *testing.T, datasets map[string]*table.Table) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tidyseq.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	for name, tbl := range datasets {
		require.NoError(t, st.Ingest(t.Context(), name, tbl))
	}
	return st
}
