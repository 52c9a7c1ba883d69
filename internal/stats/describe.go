package stats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

// Summary describes one numeric column. Quartiles use interpolation between
// order statistics, matching the convention of the source data files'
// ecosystem (R's default type-7 quantile).
type Summary struct {
	Column string
	N      int // non-NA observations
	NA     int
	Mean   float64
	SD     float64 // sample sd, NaN when N < 2
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// Describe summarizes a numeric column of a table.
func Describe(t *table.Table, col string) (*Summary, error) {
	pos, err := t.MustCol(col)
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}
	kind, err := t.KindOf(col)
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}
	if kind != table.KindInt && kind != table.KindFloat {
		return nil, fmt.Errorf("describe: column %q is %s, need a numeric column", col, kind)
	}

	var xs []float64
	na := 0
	for r := 0; r < t.NumRows(); r++ {
		v := t.Value(r, pos)
		if ir.IsNull(v) {
			na++
			continue
		}
		f, _ := ir.AsFloat(v)
		xs = append(xs, f)
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("describe: column %q has no non-NA values", col)
	}
	sort.Float64s(xs)

	s := &Summary{
		Column: col,
		N:      len(xs),
		NA:     na,
		Mean:   stat.Mean(xs, nil),
		SD:     stat.StdDev(xs, nil),
		Min:    xs[0],
		Q1:     quantile(xs, 0.25),
		Median: quantile(xs, 0.5),
		Q3:     quantile(xs, 0.75),
		Max:    xs[len(xs)-1],
	}
	return s, nil
}

// quantile interpolates between order statistics of a sorted sample
// (type-7: h = (n-1)p).
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(h)
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
