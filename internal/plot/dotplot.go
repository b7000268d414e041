package plot

import (
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"scview/internal/dataset"
	"scview/internal/logger"
	"scview/internal/markers"
	"scview/internal/theme"
)

const (
	dotSizeMin = 3
	dotSizeMax = 18
)

// DotPlot renders a marker panel as a cluster dot plot: one column per panel
// feature, one row per level of groupBy, dot size encoding the fraction of
// expressing cells and dot color the mean expression among them. Group
// boundaries from the panel become dashed vertical separators.
func DotPlot(ds *dataset.Dataset, panel *markers.Panel, groupBy string, t theme.Theme) (*charts.Scatter, error) {
	if panel == nil || len(panel.Entries) == 0 {
		return nil, fmt.Errorf("dot plot needs a non-empty marker panel")
	}
	cells, rows, err := ds.GroupIndices(groupBy)
	if err != nil {
		return nil, err
	}

	features := panel.Features()
	var data []opts.ScatterData
	maxMean := 0.0
	for fi, feature := range features {
		expr, err := ds.Expression(feature)
		if err != nil {
			logger.Warnf("dot plot: %v, skipping column", err)
			continue
		}
		for ri, row := range rows {
			frac, mean := expressionSummary(expr, cells[row])
			if mean > maxMean {
				maxMean = mean
			}
			data = append(data, opts.ScatterData{
				Name:       fmt.Sprintf("%s / %s", feature, row),
				Value:      []interface{}{fi, ri, round4(mean)},
				SymbolSize: dotSizeMin + int(frac*float64(dotSizeMax-dotSizeMin)),
			})
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("dot plot: none of the %d panel features is in dataset %q", len(features), ds.Name)
	}

	scatter := charts.NewScatter()
	xAxis, yAxis := categoryAxisOpts(t, rows)
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(t)),
		titleOpts(t, "Marker dot plot", fmt.Sprintf("grouped by %s", groupBy)),
		tooltipOpts(),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		xAxis, yAxis,
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxMean),
			InRange:    &opts.VisualMapInRange{Color: []string{t.RampLow, t.RampHigh}},
		}),
	)
	scatter.SetXAxis(features)

	seriesOpts := []charts.SeriesOpts{
		charts.WithMarkLineStyleOpts(opts.MarkLineStyle{
			Symbol:    []string{"none", "none"},
			LineStyle: &opts.LineStyle{Color: t.Separator, Type: "dashed"},
		}),
	}
	for _, b := range panel.Boundaries {
		seriesOpts = append(seriesOpts, charts.WithMarkLineNameXAxisItemOpts(
			opts.MarkLineNameXAxisItem{XAxis: b},
		))
	}
	scatter.AddSeries("markers", data, seriesOpts...)
	return scatter, nil
}

// expressionSummary returns the fraction of cells in the group with positive
// expression and the mean over those expressing cells.
func expressionSummary(expr []float64, cellIdx []int) (frac, mean float64) {
	if len(cellIdx) == 0 {
		return 0, 0
	}
	var sum float64
	expressed := 0
	for _, i := range cellIdx {
		if i >= len(expr) {
			continue
		}
		v := expr[i]
		if math.IsNaN(v) || v <= 0 {
			continue
		}
		expressed++
		sum += v
	}
	if expressed == 0 {
		return 0, 0
	}
	return float64(expressed) / float64(len(cellIdx)), sum / float64(expressed)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
