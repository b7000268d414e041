package plot

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"scview/internal/dataset"
	"scview/internal/theme"
)

// ViolinBox renders a gene's expression distribution per group as box plots
// (min, q1, median, q3, max), the summary the grid renderer needs for a
// violin-style comparison across groups.
func ViolinBox(ds *dataset.Dataset, gene, groupBy string, t theme.Theme) (*charts.BoxPlot, error) {
	expr, err := ds.Expression(gene)
	if err != nil {
		return nil, err
	}
	cells, order, err := ds.GroupIndices(groupBy)
	if err != nil {
		return nil, err
	}

	data := make([]opts.BoxPlotData, 0, len(order))
	for _, group := range order {
		values := make([]float64, 0, len(cells[group]))
		for _, ci := range cells[group] {
			if ci < len(expr) && !math.IsNaN(expr[ci]) {
				values = append(values, expr[ci])
			}
		}
		data = append(data, opts.BoxPlotData{Name: group, Value: fiveNumber(values)})
	}

	box := charts.NewBoxPlot()
	box.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(t)),
		titleOpts(t, fmt.Sprintf("%s expression", gene), fmt.Sprintf("grouped by %s", groupBy)),
		tooltipOpts(),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: t.TextSecondary, Rotate: 30},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Color: t.TextSecondary},
			SplitLine: &opts.SplitLine{
				Show:      opts.Bool(true),
				LineStyle: &opts.LineStyle{Color: t.GridLine, Opacity: opts.Float(0.3)},
			},
		}),
	)
	box.SetXAxis(order)
	box.AddSeries(gene, data)
	return box, nil
}

// fiveNumber returns [min, q1, median, q3, max] of values.
func fiveNumber(values []float64) []float64 {
	if len(values) == 0 {
		return []float64{0, 0, 0, 0, 0}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return []float64{
		round4(sorted[0]),
		round4(quantile(sorted, 0.25)),
		round4(quantile(sorted, 0.5)),
		round4(quantile(sorted, 0.75)),
		round4(sorted[len(sorted)-1]),
	}
}

// quantile interpolates linearly on pre-sorted values.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
