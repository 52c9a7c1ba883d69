package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/querysql"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

// DatasetInfo is one row of the datasets catalog.
type DatasetInfo struct {
	Name        string
	Rows        int
	Header      []string
	Kinds       []table.Kind
	Fingerprint string
	IngestedAt  time.Time
}

// Ingest stores a table as a named dataset. Re-ingesting under the same name
// replaces the previous data and catalog row atomically.
func (s *Store) Ingest(ctx context.Context, name string, t *table.Table) error {
	if name == "" {
		return fmt.Errorf("ingest: dataset name is empty")
	}
	dataTable, err := querysql.QuoteIdent("ds_" + name)
	if err != nil {
		return fmt.Errorf("ingest: dataset name: %w", err)
	}

	fingerprint, err := t.Fingerprint()
	if err != nil {
		return fmt.Errorf("ingest %q: fingerprint: %w", name, err)
	}
	headerJSON, err := marshalStrings(t.Header())
	if err != nil {
		return fmt.Errorf("ingest %q: %w", name, err)
	}
	kindsJSON, err := marshalStrings(t.KindStrings())
	if err != nil {
		return fmt.Errorf("ingest %q: %w", name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ingest %q: begin tx: %w", name, err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+dataTable); err != nil {
		return fmt.Errorf("ingest %q: drop old data: %w", name, err)
	}

	createSQL, err := createTableSQL(dataTable, t.Header(), t.Kinds())
	if err != nil {
		return fmt.Errorf("ingest %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("ingest %q: create data table: %w", name, err)
	}

	insertSQL, err := insertRowSQL(dataTable, t.Header())
	if err != nil {
		return fmt.Errorf("ingest %q: %w", name, err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("ingest %q: prepare insert: %w", name, err)
	}
	defer stmt.Close()

	for r := 0; r < t.NumRows(); r++ {
		row := t.Row(r)
		params := make([]any, len(row))
		for c, cell := range row {
			params[c] = cellToParam(cell)
		}
		if _, err := stmt.ExecContext(ctx, params...); err != nil {
			return fmt.Errorf("ingest %q: insert row %d: %w", name, r+1, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO datasets (name, n_rows, header, kinds, fingerprint, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			n_rows = excluded.n_rows,
			header = excluded.header,
			kinds = excluded.kinds,
			fingerprint = excluded.fingerprint,
			ingested_at = excluded.ingested_at
	`, name, t.NumRows(), headerJSON, kindsJSON, fingerprint,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("ingest %q: catalog row: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ingest %q: commit: %w", name, err)
	}
	return nil
}

// ReadDataset reconstructs a stored dataset as a table, rows in rowid order.
func (s *Store) ReadDataset(ctx context.Context, name string) (*table.Table, error) {
	return s.QueryDataset(ctx, querysql.Query{Dataset: name})
}

// QueryDataset runs a compiled prefix query against a stored dataset and
// scans the result into a table. Column kinds come from the catalog.
func (s *Store) QueryDataset(ctx context.Context, q querysql.Query) (*table.Table, error) {
	info, err := s.DatasetInfo(ctx, q.Dataset)
	if err != nil {
		return nil, err
	}

	header := q.Cols
	if header == nil {
		header = info.Header
	}
	kinds := make([]table.Kind, len(header))
	for i, col := range header {
		pos := -1
		for j, known := range info.Header {
			if known == col {
				pos = j
				break
			}
		}
		if pos < 0 {
			return nil, fmt.Errorf("query %q: unknown column %q", q.Dataset, col)
		}
		kinds[i] = info.Kinds[pos]
	}

	sqlText, params, err := querysql.Compile(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", q.Dataset, err)
	}
	defer rows.Close()

	out, err := table.New(header, kinds)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", q.Dataset, err)
	}

	for rows.Next() {
		dests := make([]any, len(kinds))
		for i, kind := range kinds {
			dests[i] = scanDest(kind)
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("query %q: scan: %w", q.Dataset, err)
		}
		cells := make([]ir.Value, len(dests))
		for i, dest := range dests {
			cells[i] = scannedValue(dest)
		}
		if err := out.AppendRow(cells...); err != nil {
			return nil, fmt.Errorf("query %q: row: %w", q.Dataset, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %q: %w", q.Dataset, err)
	}
	return out, nil
}

// ListDatasets returns catalog entries ordered by name.
func (s *Store) ListDatasets(ctx context.Context) ([]DatasetInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, n_rows, header, kinds, fingerprint, ingested_at
		FROM datasets ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var infos []DatasetInfo
	for rows.Next() {
		info, err := scanDatasetInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("list datasets: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return infos, nil
}

// DatasetInfo returns the catalog entry for one dataset.
func (s *Store) DatasetInfo(ctx context.Context, name string) (DatasetInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, n_rows, header, kinds, fingerprint, ingested_at
		FROM datasets WHERE name = ?
	`, name)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("dataset %q: %w", name, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return DatasetInfo{}, fmt.Errorf("dataset %q: %w", name, err)
		}
		return DatasetInfo{}, fmt.Errorf("dataset %q: %w", name, ErrUnknownDataset)
	}
	info, err := scanDatasetInfo(rows)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("dataset %q: %w", name, err)
	}
	return info, nil
}

// ErrUnknownDataset reports a dataset name absent from the catalog.
var ErrUnknownDataset = fmt.Errorf("unknown dataset")

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDatasetInfo(row rowScanner) (DatasetInfo, error) {
	var info DatasetInfo
	var headerJSON, kindsJSON, ingestedAt string
	if err := row.Scan(&info.Name, &info.Rows, &headerJSON, &kindsJSON,
		&info.Fingerprint, &ingestedAt); err != nil {
		return DatasetInfo{}, err
	}

	if err := json.Unmarshal([]byte(headerJSON), &info.Header); err != nil {
		return DatasetInfo{}, fmt.Errorf("decode header: %w", err)
	}
	var kindNames []string
	if err := json.Unmarshal([]byte(kindsJSON), &kindNames); err != nil {
		return DatasetInfo{}, fmt.Errorf("decode kinds: %w", err)
	}
	info.Kinds = make([]table.Kind, len(kindNames))
	for i, kn := range kindNames {
		kind, err := table.KindFromString(kn)
		if err != nil {
			return DatasetInfo{}, fmt.Errorf("decode kinds: %w", err)
		}
		info.Kinds[i] = kind
	}

	ts, err := time.Parse(time.RFC3339Nano, ingestedAt)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("decode ingested_at: %w", err)
	}
	info.IngestedAt = ts
	return info, nil
}

// marshalStrings serializes a string slice as canonical JSON, matching the
// hashing-side representation of headers and kinds.
func marshalStrings(ss []string) (string, error) {
	arr := make(ir.Array, len(ss))
	for i, s := range ss {
		arr[i] = ir.String(s)
	}
	b, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func createTableSQL(dataTable string, header []string, kinds []table.Kind) (string, error) {
	cols := make([]string, len(header))
	for i, name := range header {
		ident, err := querysql.QuoteIdent(name)
		if err != nil {
			return "", fmt.Errorf("column: %w", err)
		}
		cols[i] = ident + " " + sqlType(kinds[i])
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", dataTable, strings.Join(cols, ", ")), nil
}

func insertRowSQL(dataTable string, header []string) (string, error) {
	cols := make([]string, len(header))
	marks := make([]string, len(header))
	for i, name := range header {
		ident, err := querysql.QuoteIdent(name)
		if err != nil {
			return "", fmt.Errorf("column: %w", err)
		}
		cols[i] = ident
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		dataTable, strings.Join(cols, ", "), strings.Join(marks, ", ")), nil
}

func sqlType(k table.Kind) string {
	switch k {
	case table.KindInt:
		return "INTEGER"
	case table.KindFloat:
		return "REAL"
	case table.KindBool:
		return "INTEGER" // 0/1
	default:
		return "TEXT"
	}
}

func cellToParam(v ir.Value) any {
	switch val := v.(type) {
	case ir.String:
		return string(val)
	case ir.Int:
		return int64(val)
	case ir.Float:
		return float64(val)
	case ir.Bool:
		return bool(val)
	default:
		return nil // Null
	}
}

func scanDest(k table.Kind) any {
	switch k {
	case table.KindInt:
		return &sql.NullInt64{}
	case table.KindFloat:
		return &sql.NullFloat64{}
	case table.KindBool:
		return &sql.NullBool{}
	default:
		return &sql.NullString{}
	}
}

func scannedValue(dest any) ir.Value {
	switch d := dest.(type) {
	case *sql.NullInt64:
		if d.Valid {
			return ir.Int(d.Int64)
		}
	case *sql.NullFloat64:
		if d.Valid {
			return ir.Float(d.Float64)
		}
	case *sql.NullBool:
		if d.Valid {
			return ir.Bool(d.Bool)
		}
	case *sql.NullString:
		if d.Valid {
			return ir.String(d.String)
		}
	}
	return ir.Null{}
}
