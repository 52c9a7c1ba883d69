package render

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderHTML writes a ChartConfig as a standalone HTML page with an
// embedded echarts chart.
func RenderHTML(w io.Writer, cfg *ChartConfig) error {
	switch cfg.Type {
	case "bar":
		return renderBar(w, cfg)
	case "line":
		return renderLine(w, cfg)
	case "scatter":
		return renderScatter(w, cfg)
	case "box":
		return renderBox(w, cfg)
	default:
		return fmt.Errorf("render html: unsupported chart type %q", cfg.Type)
	}
}

func globalOptions(cfg *ChartConfig) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: cfg.Title}),
		charts.WithXAxisOpts(opts.XAxis{Name: cfg.XLabel}),
		charts.WithYAxisOpts(opts.YAxis{Name: cfg.YLabel}),
	}
}

// axisLabels unions the series labels in first-appearance order so every
// series aligns to one categorical x axis.
func axisLabels(cfg *ChartConfig) []string {
	var labels []string
	seen := make(map[string]bool)
	for _, s := range cfg.Series {
		for _, p := range s.Points {
			if !seen[p.Label] {
				seen[p.Label] = true
				labels = append(labels, p.Label)
			}
		}
	}
	return labels
}

func seriesValues(s ChartSeries, labels []string) []opts.BarData {
	byLabel := make(map[string]float64, len(s.Points))
	has := make(map[string]bool, len(s.Points))
	for _, p := range s.Points {
		byLabel[p.Label] = p.Y
		has[p.Label] = true
	}
	data := make([]opts.BarData, len(labels))
	for i, label := range labels {
		if has[label] {
			data[i] = opts.BarData{Value: byLabel[label]}
		} else {
			data[i] = opts.BarData{Value: nil}
		}
	}
	return data
}

func renderBar(w io.Writer, cfg *ChartConfig) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions(cfg)...)
	labels := axisLabels(cfg)
	bar.SetXAxis(labels)
	for _, s := range cfg.Series {
		bar.AddSeries(s.Name, seriesValues(s, labels))
	}
	if err := bar.Render(w); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

func renderLine(w io.Writer, cfg *ChartConfig) error {
	line := charts.NewLine()
	line.SetGlobalOptions(globalOptions(cfg)...)
	labels := axisLabels(cfg)
	line.SetXAxis(labels)
	for _, s := range cfg.Series {
		byLabel := make(map[string]float64, len(s.Points))
		has := make(map[string]bool, len(s.Points))
		for _, p := range s.Points {
			byLabel[p.Label] = p.Y
			has[p.Label] = true
		}
		data := make([]opts.LineData, len(labels))
		for i, label := range labels {
			if has[label] {
				data[i] = opts.LineData{Value: byLabel[label]}
			} else {
				data[i] = opts.LineData{Value: nil}
			}
		}
		line.AddSeries(s.Name, data)
	}
	if err := line.Render(w); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

func renderScatter(w io.Writer, cfg *ChartConfig) error {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(globalOptions(cfg)...)
	if cfg.NumericX {
		for _, s := range cfg.Series {
			data := make([]opts.ScatterData, len(s.Points))
			for i, p := range s.Points {
				data[i] = opts.ScatterData{Value: []any{p.X, p.Y}}
			}
			scatter.AddSeries(s.Name, data)
		}
	} else {
		labels := axisLabels(cfg)
		scatter.SetXAxis(labels)
		for _, s := range cfg.Series {
			data := make([]opts.ScatterData, len(s.Points))
			for i, p := range s.Points {
				data[i] = opts.ScatterData{Value: p.Y}
			}
			scatter.AddSeries(s.Name, data)
		}
	}
	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

func renderBox(w io.Writer, cfg *ChartConfig) error {
	box := charts.NewBoxPlot()
	box.SetGlobalOptions(globalOptions(cfg)...)
	labels := axisLabels(cfg)
	box.SetXAxis(labels)
	for _, s := range cfg.Series {
		grouped := make(map[string][]float64)
		for _, p := range s.Points {
			grouped[p.Label] = append(grouped[p.Label], p.Y)
		}
		data := make([]opts.BoxPlotData, len(labels))
		for i, label := range labels {
			data[i] = opts.BoxPlotData{Value: fiveNumber(grouped[label])}
		}
		box.AddSeries(s.Name, data)
	}
	if err := box.Render(w); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// fiveNumber computes [min, q1, median, q3, max] with interpolated
// quartiles, the input echarts box plots expect.
func fiveNumber(xs []float64) []float64 {
	if len(xs) == 0 {
		return nil
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	q := func(p float64) float64 {
		h := float64(len(sorted)-1) * p
		lo := int(h)
		if lo >= len(sorted)-1 {
			return sorted[len(sorted)-1]
		}
		return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
	}
	return []float64{sorted[0], q(0.25), q(0.5), q(0.75), sorted[len(sorted)-1]}
}
