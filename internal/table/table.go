package table

import (
	"fmt"

	"github.com/robert-koetsier/tidyseq/internal/ir"
)

// Kind is the declared type of a column.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

// String returns the kind name used in catalogs and fingerprints.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// KindFromString parses a kind name (the inverse of Kind.String).
func KindFromString(s string) (Kind, error) {
	switch s {
	case "string":
		return KindString, nil
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	case "bool":
		return KindBool, nil
	default:
		return KindString, fmt.Errorf("unknown column kind %q", s)
	}
}

// Table is an ordered collection of typed columns and rows of ir.Value cells.
// A Null cell is permitted in any column regardless of kind (NA in the
// source files). Column order is significant and preserved by every
// transform.
type Table struct {
	header []string
	kinds  []Kind
	rows   [][]ir.Value
	index  map[string]int // column name → position
}

// New creates an empty table with the given header and kinds.
// Duplicate column names are an error: downstream joins and pivots resolve
// columns by name.
func New(header []string, kinds []Kind) (*Table, error) {
	if len(header) != len(kinds) {
		return nil, fmt.Errorf("header has %d columns but %d kinds given", len(header), len(kinds))
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if prev, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column name %q (positions %d and %d)", name, prev, i)
		}
		index[name] = i
	}
	return &Table{
		header: append([]string(nil), header...),
		kinds:  append([]Kind(nil), kinds...),
		index:  index,
	}, nil
}

// MustNew is like New but panics on error. Use only in tests.
func MustNew(header []string, kinds []Kind) *Table {
	t, err := New(header, kinds)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.header) }

// Header returns a copy of the column names in order.
func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

// Kinds returns a copy of the column kinds in order.
func (t *Table) Kinds() []Kind {
	return append([]Kind(nil), t.kinds...)
}

// KindStrings returns the kind names in column order.
func (t *Table) KindStrings() []string {
	out := make([]string, len(t.kinds))
	for i, k := range t.kinds {
		out[i] = k.String()
	}
	return out
}

// Col returns the position of a named column.
func (t *Table) Col(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// MustCol returns the position of a named column or an error naming it.
func (t *Table) MustCol(name string) (int, error) {
	i, ok := t.index[name]
	if !ok {
		return 0, fmt.Errorf("unknown column %q", name)
	}
	return i, nil
}

// KindOf returns the kind of a named column.
func (t *Table) KindOf(name string) (Kind, error) {
	i, err := t.MustCol(name)
	if err != nil {
		return KindString, err
	}
	return t.kinds[i], nil
}

// Value returns the cell at (row, col). Callers must not mutate nested
// values; cells are scalars so this only matters for aliased rows.
func (t *Table) Value(row, col int) ir.Value {
	return t.rows[row][col]
}

// Row returns the backing slice for a row. Shared, not copied - treat as
// read-only.
func (t *Table) Row(i int) []ir.Value {
	return t.rows[i]
}

// Float returns the numeric value at (row, col); false for Null or
// non-numeric cells.
func (t *Table) Float(row, col int) (float64, bool) {
	return ir.AsFloat(t.rows[row][col])
}

// AppendRow adds a row, checking arity and cell kinds. Null is accepted in
// any column. An Int cell appended to a float column is widened to Float so
// mixed numeric sources stay one kind.
func (t *Table) AppendRow(cells ...ir.Value) error {
	if len(cells) != len(t.header) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), len(t.header))
	}
	row := make([]ir.Value, len(cells))
	for i, cell := range cells {
		checked, err := coerceCell(cell, t.kinds[i])
		if err != nil {
			return fmt.Errorf("column %q: %w", t.header[i], err)
		}
		row[i] = checked
	}
	t.rows = append(t.rows, row)
	return nil
}

// appendRowUnchecked adds a pre-validated row. Internal fast path for
// transforms that only move existing cells around.
func (t *Table) appendRowUnchecked(row []ir.Value) {
	t.rows = append(t.rows, row)
}

func coerceCell(cell ir.Value, kind Kind) (ir.Value, error) {
	if ir.IsNull(cell) {
		return cell, nil
	}
	switch kind {
	case KindString:
		if _, ok := cell.(ir.String); ok {
			return cell, nil
		}
	case KindInt:
		if _, ok := cell.(ir.Int); ok {
			return cell, nil
		}
	case KindFloat:
		switch v := cell.(type) {
		case ir.Float:
			return cell, nil
		case ir.Int:
			return ir.Float(float64(v)), nil
		}
	case KindBool:
		if _, ok := cell.(ir.Bool); ok {
			return cell, nil
		}
	}
	return nil, fmt.Errorf("cell %v does not fit %s column", cell, kind)
}

// Clone returns a deep-enough copy: header, kinds, and row slices are
// copied; scalar cells are immutable and shared.
func (t *Table) Clone() *Table {
	out, _ := New(t.header, t.kinds)
	out.rows = make([][]ir.Value, len(t.rows))
	for i, row := range t.rows {
		out.rows[i] = append([]ir.Value(nil), row...)
	}
	return out
}

// Equal reports whether two tables have identical header, kinds, and cells.
// Int and Float cells compare by exact variant, not numerically.
func (t *Table) Equal(other *Table) bool {
	if other == nil || len(t.header) != len(other.header) || len(t.rows) != len(other.rows) {
		return false
	}
	for i := range t.header {
		if t.header[i] != other.header[i] || t.kinds[i] != other.kinds[i] {
			return false
		}
	}
	for i := range t.rows {
		for j := range t.rows[i] {
			if t.rows[i][j] != other.rows[i][j] {
				return false
			}
		}
	}
	return true
}

// Fingerprint computes the content-addressed fingerprint of the table.
func (t *Table) Fingerprint() (string, error) {
	rows := make([]ir.Array, len(t.rows))
	for i, row := range t.rows {
		rows[i] = ir.Array(row)
	}
	return ir.TableFingerprint(t.header, t.KindStrings(), rows)
}

// Snapshot converts the table to a canonical-JSON-ready object. Used by the
// exercise harness and golden tests.
func (t *Table) Snapshot() ir.Object {
	header := make(ir.Array, len(t.header))
	for i, h := range t.header {
		header[i] = ir.String(h)
	}
	kinds := make(ir.Array, len(t.kinds))
	for i, k := range t.kinds {
		kinds[i] = ir.String(k.String())
	}
	rows := make(ir.Array, len(t.rows))
	for i, row := range t.rows {
		rows[i] = ir.Array(append([]ir.Value(nil), row...))
	}
	return ir.Object{
		"header": header,
		"kinds":  kinds,
		"rows":   rows,
	}
}
