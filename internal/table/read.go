package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robert-koetsier/tidyseq/internal/ir"
)

// DefaultNAStrings are the tokens loaded as Null cells.
// Empty string covers trailing unfilled fields in hand-edited files.
var DefaultNAStrings = []string{"", "NA", "NaN", "nan"}

// ReadOptions configures the delimited reader.
type ReadOptions struct {
	Comma     rune     // field delimiter; 0 defaults to ','
	Comment   rune     // comment leader; 0 defaults to '#'
	NAStrings []string // tokens treated as missing; nil defaults to DefaultNAStrings
}

// ReadDelim reads a delimited file into a typed table.
//
// The first record is the header (required, names must be unique). Column
// kinds are inferred over all rows: a column is int if every non-NA cell
// parses as an integer, otherwise float if every non-NA cell parses as a
// number, otherwise bool if every non-NA cell is true/false, otherwise
// string. A column that is entirely NA stays string.
//
// Ragged rows are an error; encoding/csv reports the offending line.
func ReadDelim(r io.Reader, opts ReadOptions) (*Table, error) {
	if opts.Comma == 0 {
		opts.Comma = ','
	}
	if opts.Comment == 0 {
		opts.Comment = '#'
	}
	if opts.NAStrings == nil {
		opts.NAStrings = DefaultNAStrings
	}

	cr := csv.NewReader(r)
	cr.Comma = opts.Comma
	cr.Comment = opts.Comment
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read delimited input: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("input has no header row")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	naSet := make(map[string]bool, len(opts.NAStrings))
	for _, na := range opts.NAStrings {
		naSet[na] = true
	}

	body := records[1:]
	kinds := inferKinds(header, body, naSet)

	t, err := New(header, kinds)
	if err != nil {
		return nil, err
	}

	for rowIdx, record := range body {
		cells := make([]ir.Value, len(header))
		for colIdx, raw := range record {
			cell, err := parseCell(strings.TrimSpace(raw), kinds[colIdx], naSet)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", rowIdx+2, header[colIdx], err)
			}
			cells[colIdx] = cell
		}
		t.appendRowUnchecked(cells)
	}

	return t, nil
}

// ReadFile reads a delimited file, picking the delimiter from the
// extension: .csv is comma, .tsv/.tab/.txt are tab.
func ReadFile(path string, opts ReadOptions) (*Table, error) {
	if opts.Comma == 0 {
		opts.Comma = DelimForPath(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := ReadDelim(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// DelimForPath returns the delimiter implied by a file extension.
func DelimForPath(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab", ".txt":
		return '\t'
	default:
		return ','
	}
}

// inferKinds scans every cell of every column once per candidate kind.
// Order of elimination: int ⊂ float; bool only for exact true/false.
func inferKinds(header []string, body [][]string, naSet map[string]bool) []Kind {
	kinds := make([]Kind, len(header))
	for col := range header {
		allInt, allFloat, allBool := true, true, true
		seen := false
		for _, record := range body {
			raw := strings.TrimSpace(record[col])
			if naSet[raw] {
				continue
			}
			seen = true
			if allInt {
				if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
					allInt = false
				}
			}
			if allFloat {
				if _, err := strconv.ParseFloat(raw, 64); err != nil {
					allFloat = false
				}
			}
			if allBool && raw != "true" && raw != "false" {
				allBool = false
			}
			if !allInt && !allFloat && !allBool {
				break
			}
		}
		switch {
		case !seen:
			kinds[col] = KindString // all-NA column
		case allInt:
			kinds[col] = KindInt
		case allFloat:
			kinds[col] = KindFloat
		case allBool:
			kinds[col] = KindBool
		default:
			kinds[col] = KindString
		}
	}
	return kinds
}

func parseCell(raw string, kind Kind, naSet map[string]bool) (ir.Value, error) {
	if naSet[raw] {
		return ir.Null{}, nil
	}
	switch kind {
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot parse %q as int", raw)
		}
		return ir.Int(n), nil
	case KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot parse %q as float", raw)
		}
		return ir.Float(f), nil
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("cannot parse %q as bool", raw)
		}
		return ir.Bool(b), nil
	default:
		return ir.String(raw), nil
	}
}
