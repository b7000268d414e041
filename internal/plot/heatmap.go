package plot

import (
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"scview/internal/dataset"
	"scview/internal/layout"
	"scview/internal/theme"
)

// Heatmap renders an expression matrix with columns in the arranged order:
// one row per feature, one column per cell.
func Heatmap(ds *dataset.Dataset, features []string, arr *layout.Arrangement, t theme.Theme) (*charts.HeatMap, error) {
	if arr == nil || len(arr.Order) == 0 {
		return nil, fmt.Errorf("heatmap needs an arranged column order")
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("heatmap needs at least one feature")
	}
	colIdx, err := columnIndices(ds, arr.Order)
	if err != nil {
		return nil, err
	}

	var data []opts.HeatMapData
	lo, hi := math.Inf(1), math.Inf(-1)
	for fi, feature := range features {
		expr, err := ds.Expression(feature)
		if err != nil {
			return nil, err
		}
		for ci, cell := range colIdx {
			v := expr[cell]
			if math.IsNaN(v) {
				data = append(data, opts.HeatMapData{Value: [3]interface{}{ci, fi, nil}})
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{ci, fi, round4(v)}})
		}
	}
	if lo > hi {
		lo, hi = 0, 0
	}

	subtitle := fmt.Sprintf("%d features × %d cells", len(features), len(arr.Order))
	if arr.Degraded {
		subtitle += " (degraded ordering: clustered on displayed values)"
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(t)),
		titleOpts(t, "Expression heatmap", subtitle),
		tooltipOpts(),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(false)},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:      "category",
			Data:      features,
			AxisLabel: &opts.AxisLabel{Color: t.TextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			InRange:    &opts.VisualMapInRange{Color: []string{t.RampLow, t.RampHigh}},
		}),
	)
	hm.SetXAxis(arr.Order)
	hm.AddSeries("expression", data)
	return hm, nil
}

// AnnotationStrip renders one annotation track as a single-row heatmap whose
// colors come from the arrangement's color scheme, so the strip can sit above
// the main heatmap with matching column order.
func AnnotationStrip(ds *dataset.Dataset, arr *layout.Arrangement, track string, t theme.Theme) (*charts.HeatMap, error) {
	rule, ok := arr.Tracks[track]
	if !ok {
		return nil, fmt.Errorf("track %q not part of the arrangement", track)
	}
	col, ok := ds.Column(track)
	if !ok {
		return nil, fmt.Errorf("metadata column %q not in dataset %q", track, ds.Name)
	}
	colIdx, err := columnIndices(ds, arr.Order)
	if err != nil {
		return nil, err
	}

	var data []opts.HeatMapData
	var colors []string
	var vmin, vmax float64
	if rule.Kind == layout.Categorical {
		levelIdx := make(map[string]int, len(rule.Levels))
		for i, l := range rule.Levels {
			levelIdx[l] = i
			colors = append(colors, rule.Colors[l])
		}
		for ci, cell := range colIdx {
			label := "NA"
			if cell < len(col.Labels) && col.Labels[cell] != "" {
				label = col.Labels[cell]
			}
			data = append(data, opts.HeatMapData{
				Name:  label,
				Value: [3]interface{}{ci, 0, levelIdx[label]},
			})
		}
		vmax = float64(len(rule.Levels) - 1)
	} else {
		colors = []string{rule.Scale.Low, rule.Scale.High}
		vmin, vmax = rule.Scale.Min, rule.Scale.Max
		for ci, cell := range colIdx {
			v := col.Values[cell]
			if math.IsNaN(v) {
				data = append(data, opts.HeatMapData{Value: [3]interface{}{ci, 0, nil}})
				continue
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{ci, 0, round4(v)}})
		}
	}

	strip := charts.NewHeatMap()
	strip.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:           fmt.Sprintf("%dpx", t.WidthPx),
			Height:          "90px",
			BackgroundColor: t.Background,
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(false)},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:      "category",
			Data:      []string{track},
			AxisLabel: &opts.AxisLabel{Color: t.TextSecondary},
		}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:    opts.Bool(false),
			Min:     float32(vmin),
			Max:     float32(vmax),
			InRange: &opts.VisualMapInRange{Color: colors},
		}),
	)
	strip.SetXAxis(arr.Order)
	strip.AddSeries(track, data)
	return strip, nil
}

// HeatmapFigure stacks the arrangement's annotation strips above the main
// heatmap as one renderable chart list.
func HeatmapFigure(ds *dataset.Dataset, features []string, arr *layout.Arrangement, t theme.Theme) ([]components.Charter, error) {
	var chs []components.Charter
	for _, track := range arr.TrackOrder {
		strip, err := AnnotationStrip(ds, arr, track, t)
		if err != nil {
			return nil, err
		}
		chs = append(chs, strip)
	}
	hm, err := Heatmap(ds, features, arr, t)
	if err != nil {
		return nil, err
	}
	return append(chs, hm), nil
}

// columnIndices resolves arranged sample identifiers back to dataset cell
// positions, failing on identifiers the dataset does not carry.
func columnIndices(ds *dataset.Dataset, order []string) ([]int, error) {
	pos := make(map[string]int, len(ds.Cells))
	for i, c := range ds.Cells {
		pos[c] = i
	}
	out := make([]int, len(order))
	for i, id := range order {
		p, ok := pos[id]
		if !ok {
			return nil, fmt.Errorf("cell %q not in dataset %q", id, ds.Name)
		}
		out[i] = p
	}
	return out, nil
}
