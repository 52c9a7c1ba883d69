package verbs

import (
	"fmt"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

// LeftJoin joins right onto left by the key columns, keeping every left row.
// Left rows with no match get Null cells for the right-side columns.
func LeftJoin(left, right *table.Table, by ...string) (*table.Table, error) {
	return hashJoin(left, right, by, true)
}

// InnerJoin joins right onto left by the key columns, keeping only matching
// left rows.
func InnerJoin(left, right *table.Table, by ...string) (*table.Table, error) {
	return hashJoin(left, right, by, false)
}

// hashJoin builds a multimap over the right table's key columns and probes
// it with each left row in order. Multiple right matches duplicate the left
// row, matches emitted in right-row order. Right-side non-key columns are
// appended after the left columns; a name collision gets a ".y" suffix.
func hashJoin(left, right *table.Table, by []string, keepUnmatched bool) (*table.Table, error) {
	if len(by) == 0 {
		return nil, fmt.Errorf("join: at least one key column is required")
	}

	leftIdx := make([]int, len(by))
	rightIdx := make([]int, len(by))
	leftKinds, rightKinds := left.Kinds(), right.Kinds()
	for i, name := range by {
		lp, err := left.MustCol(name)
		if err != nil {
			return nil, fmt.Errorf("join: left table: %w", err)
		}
		rp, err := right.MustCol(name)
		if err != nil {
			return nil, fmt.Errorf("join: right table: %w", err)
		}
		if leftKinds[lp] != rightKinds[rp] {
			return nil, fmt.Errorf("join: key column %q is %s on the left but %s on the right",
				name, leftKinds[lp], rightKinds[rp])
		}
		leftIdx[i] = lp
		rightIdx[i] = rp
	}

	// Right-side payload: every column that is not a key
	keySet := make(map[string]bool, len(by))
	for _, name := range by {
		keySet[name] = true
	}
	var payloadIdx []int
	var payloadNames []string
	var payloadKinds []table.Kind
	for i, name := range right.Header() {
		if keySet[name] {
			continue
		}
		out := name
		if _, clash := left.Col(name); clash {
			out = name + ".y"
		}
		payloadIdx = append(payloadIdx, i)
		payloadNames = append(payloadNames, out)
		payloadKinds = append(payloadKinds, rightKinds[i])
	}

	header := append(left.Header(), payloadNames...)
	kinds := append(left.Kinds(), payloadKinds...)
	out, err := table.New(header, kinds)
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}

	// Build phase
	matches := make(map[string][]int)
	for r := 0; r < right.NumRows(); r++ {
		key := rowKey(right.Row(r), rightIdx)
		matches[key] = append(matches[key], r)
	}

	// Probe phase
	for l := 0; l < left.NumRows(); l++ {
		leftRow := left.Row(l)
		key := rowKey(leftRow, leftIdx)
		rs := matches[key]
		if len(rs) == 0 {
			if !keepUnmatched {
				continue
			}
			cells := append([]ir.Value(nil), leftRow...)
			for range payloadIdx {
				cells = append(cells, ir.Null{})
			}
			if err := out.AppendRow(cells...); err != nil {
				return nil, fmt.Errorf("join: %w", err)
			}
			continue
		}
		for _, r := range rs {
			rightRow := right.Row(r)
			cells := append([]ir.Value(nil), leftRow...)
			for _, pos := range payloadIdx {
				cells = append(cells, rightRow[pos])
			}
			if err := out.AppendRow(cells...); err != nil {
				return nil, fmt.Errorf("join: %w", err)
			}
		}
	}
	return out, nil
}
