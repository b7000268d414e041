package plot

import (
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"scview/internal/dataset"
	"scview/internal/layout"
	"scview/internal/theme"
)

// EmbeddingScatter renders the first two dimensions of a named embedding,
// with points colored either by a categorical metadata column (one series per
// level) or by a gene's expression (continuous visual map).
func EmbeddingScatter(ds *dataset.Dataset, basis, colorBy string, t theme.Theme) (*charts.Scatter, error) {
	coords, ok := ds.Embedding(basis)
	if !ok {
		return nil, fmt.Errorf("embedding %q not in dataset %q", basis, ds.Name)
	}

	scatter := charts.NewScatter()
	xAxis, yAxis := valueAxesOpts(t)
	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(initOpts(t)),
		titleOpts(t, fmt.Sprintf("%s embedding", basis), fmt.Sprintf("colored by %s", colorBy)),
		tooltipOpts(),
		xAxis, yAxis,
	}

	if col, ok := ds.Column(colorBy); ok && col.Kind == dataset.KindCategorical {
		cells, order, err := ds.GroupIndices(colorBy)
		if err != nil {
			return nil, err
		}
		palette := layout.CategoricalPalette(len(order))
		global = append(global, charts.WithLegendOpts(opts.Legend{
			Show:      opts.Bool(true),
			TextStyle: &opts.TextStyle{Color: t.TextPrimary},
		}))
		scatter.SetGlobalOptions(global...)
		for i, level := range order {
			data := make([]opts.ScatterData, 0, len(cells[level]))
			for _, ci := range cells[level] {
				data = append(data, opts.ScatterData{
					Value:      pointValue(coords[ci]),
					SymbolSize: 4,
				})
			}
			scatter.AddSeries(level, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: palette[i]}))
		}
		return scatter, nil
	}

	expr, err := ds.Expression(colorBy)
	if err != nil {
		return nil, fmt.Errorf("color key %q is neither a categorical column nor a gene: %w", colorBy, err)
	}
	maxExpr := 0.0
	data := make([]opts.ScatterData, 0, len(coords))
	for ci, pt := range coords {
		v := expr[ci]
		if math.IsNaN(v) {
			v = 0
		}
		if v > maxExpr {
			maxExpr = v
		}
		data = append(data, opts.ScatterData{
			Value:      append(pointValue(pt), round4(v)),
			SymbolSize: 4,
		})
	}
	global = append(global,
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxExpr),
			InRange:    &opts.VisualMapInRange{Color: []string{t.RampLow, t.RampHigh}},
		}),
	)
	scatter.SetGlobalOptions(global...)
	scatter.AddSeries(colorBy, data)
	return scatter, nil
}

func pointValue(pt []float64) []interface{} {
	x, y := 0.0, 0.0
	if len(pt) > 0 {
		x = pt[0]
	}
	if len(pt) > 1 {
		y = pt[1]
	}
	return []interface{}{round4(x), round4(y)}
}
