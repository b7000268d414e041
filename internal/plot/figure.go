package plot

import (
	"context"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/components"
	"golang.org/x/sync/errgroup"
)

// ChartBuilder produces one chart of a multi-panel figure.
type ChartBuilder func() (components.Charter, error)

// BuildFigure runs the builders concurrently (charts of a figure are
// independent) and returns the charts in builder order. The first failing
// builder aborts the figure.
func BuildFigure(ctx context.Context, builders ...ChartBuilder) ([]components.Charter, error) {
	if len(builders) == 0 {
		return nil, fmt.Errorf("figure needs at least one chart")
	}
	charts := make([]components.Charter, len(builders))
	g, _ := errgroup.WithContext(ctx)
	for i, build := range builders {
		i, build := i, build
		g.Go(func() error {
			ch, err := build()
			if err != nil {
				return err
			}
			charts[i] = ch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return charts, nil
}
