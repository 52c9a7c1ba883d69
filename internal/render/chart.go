// Package render turns result tables into terminal text, chart configs and
// standalone HTML charts.
package render

import (
	"fmt"

	"github.com/robert-koetsier/tidyseq/internal/ir"
	"github.com/robert-koetsier/tidyseq/internal/pipeline"
	"github.com/robert-koetsier/tidyseq/internal/table"
)

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// ChartPoint is one datum. Label carries the x value for categorical
// charts; X is set instead for numeric scatter axes.
type ChartPoint struct {
	Label string
	X     float64
	Y     float64
}

// ChartSeries is one named series with an assigned color.
type ChartSeries struct {
	Name   string
	Color  string
	Points []ChartPoint
}

// ChartConfig is a render-ready chart description: everything a frontend
// or the HTML renderer needs, nothing tied to either.
type ChartConfig struct {
	Type     string // "bar", "scatter", "line", "box"
	Title    string
	XLabel   string
	YLabel   string
	NumericX bool // scatter has a numeric x axis
	Series   []ChartSeries
}

// BuildChart shapes a result table into a ChartConfig per the chart spec.
// Rows with a Null x or y cell are skipped. When the spec names a series
// column, rows split into one series per distinct value, first appearance
// order; otherwise there is a single series named after the y column.
func BuildChart(spec pipeline.ChartSpec, t *table.Table) (*ChartConfig, error) {
	xPos, err := t.MustCol(spec.X)
	if err != nil {
		return nil, fmt.Errorf("chart: x: %w", err)
	}
	yPos, err := t.MustCol(spec.Y)
	if err != nil {
		return nil, fmt.Errorf("chart: y: %w", err)
	}
	yKind, _ := t.KindOf(spec.Y)
	if yKind != table.KindInt && yKind != table.KindFloat {
		return nil, fmt.Errorf("chart: y column %q is %s, need numeric", spec.Y, yKind)
	}

	seriesPos := -1
	if spec.Series != "" {
		seriesPos, err = t.MustCol(spec.Series)
		if err != nil {
			return nil, fmt.Errorf("chart: series: %w", err)
		}
	}

	xKind, _ := t.KindOf(spec.X)
	numericX := spec.Type == "scatter" && (xKind == table.KindInt || xKind == table.KindFloat)

	cfg := &ChartConfig{
		Type:     spec.Type,
		Title:    spec.Title,
		XLabel:   spec.X,
		YLabel:   spec.Y,
		NumericX: numericX,
	}

	seriesIdx := make(map[string]int)
	addPoint := func(name string, p ChartPoint) {
		i, ok := seriesIdx[name]
		if !ok {
			i = len(cfg.Series)
			seriesIdx[name] = i
			cfg.Series = append(cfg.Series, ChartSeries{
				Name:  name,
				Color: defaultColors[i%len(defaultColors)],
			})
		}
		cfg.Series[i].Points = append(cfg.Series[i].Points, p)
	}

	for r := 0; r < t.NumRows(); r++ {
		xv, yv := t.Value(r, xPos), t.Value(r, yPos)
		if ir.IsNull(xv) || ir.IsNull(yv) {
			continue
		}
		y, _ := ir.AsFloat(yv)

		p := ChartPoint{Y: y}
		if numericX {
			p.X, _ = ir.AsFloat(xv)
		} else {
			p.Label = ir.Text(xv)
		}

		name := spec.Y
		if seriesPos >= 0 {
			sv := t.Value(r, seriesPos)
			if ir.IsNull(sv) {
				continue
			}
			name = ir.Text(sv)
		}
		addPoint(name, p)
	}

	if len(cfg.Series) == 0 {
		return nil, fmt.Errorf("chart: no plottable rows (all x or y cells NA)")
	}
	return cfg, nil
}

// Snapshot renders the config as a canonical-JSON-ready object, used for
// golden comparisons and analysis hashing.
func (c *ChartConfig) Snapshot() ir.Object {
	series := make(ir.Array, len(c.Series))
	for i, s := range c.Series {
		points := make(ir.Array, len(s.Points))
		for j, p := range s.Points {
			point := ir.Object{"y": ir.Float(p.Y)}
			if c.NumericX {
				point["x"] = ir.Float(p.X)
			} else {
				point["label"] = ir.String(p.Label)
			}
			points[j] = point
		}
		series[i] = ir.Object{
			"name":   ir.String(s.Name),
			"color":  ir.String(s.Color),
			"points": points,
		}
	}
	return ir.Object{
		"type":    ir.String(c.Type),
		"title":   ir.String(c.Title),
		"x_label": ir.String(c.XLabel),
		"y_label": ir.String(c.YLabel),
		"series":  series,
	}
}
