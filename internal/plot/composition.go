package plot

import (
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"scview/internal/dataset"
	"scview/internal/layout"
	"scview/internal/theme"
)

// CompositionBar renders, for each level of groupBy, the proportion of its
// cells falling into each level of stackBy as one stacked bar. Typical use:
// cluster on the x axis, sample or condition as the stack.
func CompositionBar(ds *dataset.Dataset, groupBy, stackBy string, t theme.Theme) (*charts.Bar, error) {
	if groupBy == stackBy {
		return nil, fmt.Errorf("composition bar needs two different columns, got %q twice", groupBy)
	}
	groups, groupOrder, err := ds.GroupIndices(groupBy)
	if err != nil {
		return nil, err
	}
	stacks, stackOrder, err := ds.GroupIndices(stackBy)
	if err != nil {
		return nil, err
	}

	// Invert the stack column once: cell index -> stack level.
	stackOf := make(map[int]string, ds.CellCount())
	for level, idx := range stacks {
		for _, i := range idx {
			stackOf[i] = level
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(t)),
		titleOpts(t, "Composition", fmt.Sprintf("%s by %s", groupBy, stackBy)),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{
			Show:      opts.Bool(true),
			TextStyle: &opts.TextStyle{Color: t.TextPrimary},
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: t.TextSecondary, Rotate: 30},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Max:       1,
			AxisLabel: &opts.AxisLabel{Color: t.TextSecondary},
			SplitLine: &opts.SplitLine{
				Show:      opts.Bool(true),
				LineStyle: &opts.LineStyle{Color: t.GridLine, Opacity: opts.Float(0.3)},
			},
		}),
	)
	bar.SetXAxis(groupOrder)

	palette := layout.CategoricalPalette(len(stackOrder))
	for si, stackLevel := range stackOrder {
		data := make([]opts.BarData, len(groupOrder))
		for gi, group := range groupOrder {
			total := len(groups[group])
			count := 0
			for _, ci := range groups[group] {
				if stackOf[ci] == stackLevel {
					count++
				}
			}
			frac := 0.0
			if total > 0 {
				frac = float64(count) / float64(total)
			}
			data[gi] = opts.BarData{
				Value:     round4(frac),
				ItemStyle: &opts.ItemStyle{Color: palette[si]},
			}
		}
		bar.AddSeries(stackLevel, data, charts.WithBarChartOpts(opts.BarChart{Stack: "composition"}))
	}
	return bar, nil
}
