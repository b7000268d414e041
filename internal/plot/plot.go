package plot

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"scview/internal/theme"
)

// ImageResult is a finished render: the HTML page that was built and, when a
// PNG snapshot was requested, the screenshot bytes.
type ImageResult struct {
	HTML        []byte `json:"-"`
	Bytes       []byte `json:"-"`
	Base64      string `json:"base64,omitempty"`
	Filename    string `json:"filename"`
	Description string `json:"description"`
}

func (r *ImageResult) DataURI() string {
	if r == nil {
		return ""
	}
	if r.Base64 == "" && len(r.Bytes) > 0 {
		r.Base64 = base64.StdEncoding.EncodeToString(r.Bytes)
	}
	if r.Base64 == "" {
		return ""
	}
	return "data:image/png;base64," + r.Base64
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

// EnsureHeadlessAvailable probes for a usable headless Chrome once per
// process so PNG export fails early with a clear error.
func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		targetCtx := ctx
		if targetCtx == nil {
			targetCtx = context.Background()
		}
		parent, cancel := chromedp.NewContext(targetCtx)
		if cancel != nil {
			defer cancel()
		}
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

// RenderHTMLToPNG loads the chart HTML in headless Chrome and screenshots it.
func RenderHTMLToPNG(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}

// RenderPage lays the charts out on one flex page and returns the HTML.
func RenderPage(chs ...components.Charter) ([]byte, error) {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(chs...)
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func initOpts(t theme.Theme) opts.Initialization {
	return opts.Initialization{
		Width:           fmt.Sprintf("%dpx", t.WidthPx),
		Height:          fmt.Sprintf("%dpx", t.HeightPx),
		BackgroundColor: t.Background,
	}
}

func titleOpts(t theme.Theme, title, subtitle string) charts.GlobalOpts {
	return charts.WithTitleOpts(opts.Title{
		Title:         title,
		Subtitle:      subtitle,
		Left:          "left",
		Top:           "10",
		TitleStyle:    &opts.TextStyle{Color: t.TextPrimary, FontSize: 16},
		SubtitleStyle: &opts.TextStyle{Color: t.TextSecondary},
	})
}

func tooltipOpts() charts.GlobalOpts {
	return charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"})
}

func categoryAxisOpts(t theme.Theme, labels []string) (charts.GlobalOpts, charts.GlobalOpts) {
	x := charts.WithXAxisOpts(opts.XAxis{
		Type:      "category",
		AxisLabel: &opts.AxisLabel{Color: t.TextSecondary, Rotate: 45},
		SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
	})
	y := charts.WithYAxisOpts(opts.YAxis{
		Type:      "category",
		Data:      labels,
		AxisLabel: &opts.AxisLabel{Color: t.TextSecondary},
		SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
	})
	return x, y
}

func valueAxesOpts(t theme.Theme) (charts.GlobalOpts, charts.GlobalOpts) {
	x := charts.WithXAxisOpts(opts.XAxis{
		Type:      "value",
		Scale:     opts.Bool(true),
		AxisLabel: &opts.AxisLabel{Color: t.TextSecondary},
		SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
	})
	y := charts.WithYAxisOpts(opts.YAxis{
		Type:      "value",
		Scale:     opts.Bool(true),
		AxisLabel: &opts.AxisLabel{Color: t.TextSecondary},
		SplitLine: &opts.SplitLine{
			Show:      opts.Bool(true),
			LineStyle: &opts.LineStyle{Color: t.GridLine, Opacity: opts.Float(0.3)},
		},
	})
	return x, y
}
