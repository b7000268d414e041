// Package render orchestrates one figure request end to end: panel building,
// column arrangement, chart assembly, artifact output and bookkeeping.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/google/uuid"

	"scview/internal/config"
	"scview/internal/dataset"
	"scview/internal/layout"
	"scview/internal/logger"
	"scview/internal/markers"
	"scview/internal/plot"
	"scview/internal/store/gallery"
	"scview/internal/store/renderlog"
	"scview/internal/theme"
)

// Plot kinds accepted by Render.
const (
	KindDotPlot     = "dotplot"
	KindHeatmap     = "heatmap"
	KindEmbedding   = "embedding"
	KindViolin      = "violin"
	KindComposition = "composition"
)

var ErrUnknownPlotKind = errors.New("unknown plot kind")

// Request describes one figure. Zero-valued fields fall back to the
// configured defaults; pointer fields distinguish "absent" from "false".
type Request struct {
	Kind    string `json:"kind"`
	GroupBy string `json:"group_by,omitempty"`
	StackBy string `json:"stack_by,omitempty"`
	Gene    string `json:"gene,omitempty"`
	Basis   string `json:"basis,omitempty"`
	ColorBy string `json:"color_by,omitempty"`

	PanelSize       int      `json:"panel_size,omitempty"`
	TechnicalFilter string   `json:"technical_filter,omitempty"`
	UniqueOnly      *bool    `json:"unique_only,omitempty"`
	Groups          []string `json:"groups,omitempty"`

	Method      string   `json:"method,omitempty"`
	Annotations []string `json:"annotations,omitempty"`
	OrderBy     []string `json:"order_by,omitempty"`

	Theme       string `json:"theme,omitempty"`
	SnapshotPNG *bool  `json:"snapshot_png,omitempty"`
}

// Result is a completed render: the stored gallery record plus the built
// artifacts for callers that want to return them inline.
type Result struct {
	Record gallery.Record    `json:"record"`
	Image  *plot.ImageResult `json:"image,omitempty"`
}

// Summary describes the loaded dataset for discovery endpoints.
type Summary struct {
	Name         string   `json:"name"`
	Cells        int      `json:"cells"`
	Genes        int      `json:"genes"`
	Columns      []string `json:"columns"`
	MarkerGroups []string `json:"marker_groups,omitempty"`
}

// Service holds the immutable dataset plus the stores a render touches.
type Service struct {
	cfg     *config.Config
	ds      *dataset.Dataset
	table   *markers.Table
	themes  *theme.Registry
	gallery *gallery.Store
	audit   *renderlog.Log
	outDir  string
}

func NewService(cfg *config.Config, ds *dataset.Dataset, table *markers.Table, themes *theme.Registry, gal *gallery.Store, audit *renderlog.Log) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("render service: nil config")
	}
	if ds == nil {
		return nil, fmt.Errorf("render service: nil dataset")
	}
	return &Service{
		cfg:     cfg,
		ds:      ds,
		table:   table,
		themes:  themes,
		gallery: gal,
		audit:   audit,
		outDir:  cfg.App.OutputDir,
	}, nil
}

// DatasetSummary reports what the loaded dataset offers.
func (s *Service) DatasetSummary() Summary {
	sum := Summary{
		Name:    s.ds.Name,
		Cells:   s.ds.CellCount(),
		Genes:   len(s.ds.Genes),
		Columns: s.ds.ColumnNames(),
	}
	if s.table != nil {
		sum.MarkerGroups = s.table.Groups()
	}
	return sum
}

// ThemeNames lists the selectable themes, the default always included.
func (s *Service) ThemeNames() []string {
	names := []string{theme.Default().Name}
	if s.themes == nil {
		return names
	}
	snap := s.themes.Snapshot()
	for name := range snap.Themes {
		if name != theme.Default().Name {
			names = append(names, name)
		}
	}
	return names
}

// Render builds the requested figure, writes its artifacts under the output
// directory and records it in the gallery and the audit log.
func (s *Service) Render(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := s.render(ctx, req)
	s.recordAudit(ctx, req, time.Since(start), err)
	return res, err
}

func (s *Service) render(ctx context.Context, req Request) (*Result, error) {
	req = s.withDefaults(req)
	t := s.themeFor(req.Theme)

	charts, degraded, err := s.buildCharts(ctx, req, t)
	if err != nil {
		return nil, err
	}
	html, err := plot.RenderPage(charts...)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	rec := gallery.Record{
		ID:       id,
		Dataset:  s.ds.Name,
		Kind:     req.Kind,
		Degraded: degraded,
	}
	params, err := gallery.EncodeParams(req)
	if err != nil {
		logger.Warnf("[render] encoding request params failed kind=%s err=%v", req.Kind, err)
	} else {
		rec.Params = params
	}

	img := &plot.ImageResult{
		HTML:        html,
		Filename:    id + ".png",
		Description: fmt.Sprintf("%s of dataset %s", req.Kind, s.ds.Name),
	}
	if s.outDir != "" {
		htmlPath := filepath.Join(s.outDir, id+".html")
		if err := writeArtifact(htmlPath, html); err != nil {
			return nil, err
		}
		rec.HTMLPath = htmlPath
	}
	if boolValue(req.SnapshotPNG, s.cfg.Plot.SnapshotPNG) {
		png, err := s.snapshot(ctx, html, t)
		if err != nil {
			// The HTML artifact is still usable without the screenshot.
			logger.Warnf("[render] png snapshot failed kind=%s err=%v", req.Kind, err)
		} else {
			img.Bytes = png
			if s.outDir != "" {
				pngPath := filepath.Join(s.outDir, id+".png")
				if err := writeArtifact(pngPath, png); err != nil {
					return nil, err
				}
				rec.PNGPath = pngPath
			}
		}
	}
	res := &Result{Image: img}

	if s.gallery != nil {
		if err := s.gallery.Save(ctx, &rec); err != nil {
			return nil, fmt.Errorf("saving gallery record: %w", err)
		}
	}
	res.Record = rec
	logger.Infof("[render] kind=%s dataset=%s id=%s degraded=%v", req.Kind, s.ds.Name, id, degraded)
	return res, nil
}

func (s *Service) buildCharts(ctx context.Context, req Request, t theme.Theme) ([]components.Charter, bool, error) {
	switch req.Kind {
	case KindDotPlot:
		panel, err := s.buildPanel(req)
		if err != nil {
			return nil, false, err
		}
		charts, err := plot.BuildFigure(ctx, func() (components.Charter, error) {
			return plot.DotPlot(s.ds, panel, req.GroupBy, t)
		})
		if err != nil {
			return nil, false, err
		}
		return charts, false, nil
	case KindHeatmap:
		panel, err := s.buildPanel(req)
		if err != nil {
			return nil, false, err
		}
		arr, err := s.arrange(panel, req)
		if err != nil {
			return nil, false, err
		}
		charts, err := plot.HeatmapFigure(s.ds, panel.Features(), arr, t)
		if err != nil {
			return nil, false, err
		}
		return charts, arr.Degraded, nil
	case KindEmbedding:
		return wrapSingle(func() (components.Charter, error) {
			return plot.EmbeddingScatter(s.ds, req.Basis, req.ColorBy, t)
		})
	case KindViolin:
		return wrapSingle(func() (components.Charter, error) {
			return plot.ViolinBox(s.ds, req.Gene, req.GroupBy, t)
		})
	case KindComposition:
		return wrapSingle(func() (components.Charter, error) {
			return plot.CompositionBar(s.ds, req.GroupBy, req.StackBy, t)
		})
	default:
		return nil, false, fmt.Errorf("%q: %w", req.Kind, ErrUnknownPlotKind)
	}
}

func wrapSingle(build func() (components.Charter, error)) ([]components.Charter, bool, error) {
	ch, err := build()
	if err != nil {
		return nil, false, err
	}
	return []components.Charter{ch}, false, nil
}

func (s *Service) buildPanel(req Request) (*markers.Panel, error) {
	if s.table == nil || s.table.Len() == 0 {
		return nil, fmt.Errorf("no marker table loaded")
	}
	pred, ok := markers.TechnicalFilter(req.TechnicalFilter, s.ds.Pseudogenes())
	if !ok {
		return nil, fmt.Errorf("unknown technical filter %q", req.TechnicalFilter)
	}
	return markers.Build(s.table, markers.Options{
		PanelSize:  req.PanelSize,
		Filter:     pred,
		UniqueOnly: boolValue(req.UniqueOnly, s.cfg.Plot.UniqueOnly),
		Groups:     req.Groups,
	})
}

func (s *Service) arrange(panel *markers.Panel, req Request) (*layout.Arrangement, error) {
	features := panel.Features()
	in := layout.Input{
		Samples: append([]string(nil), s.ds.Cells...),
		Matrix:  s.featureMatrix(features),
		Columns: map[string]layout.Column{},
	}
	if coords, ok := s.ds.Embedding(req.Basis); ok {
		in.Coords = coords
	}
	for _, name := range append(append([]string(nil), req.Annotations...), req.OrderBy...) {
		col, ok := s.ds.Column(name)
		if !ok {
			continue // Arrange reports the missing column itself
		}
		in.Columns[name] = toLayoutColumn(col)
	}
	return layout.Arrange(in, layout.Options{
		Method:      req.Method,
		Annotations: req.Annotations,
		OrderBy:     req.OrderBy,
	})
}

// featureMatrix transposes per-gene expression vectors into per-cell rows for
// the clustering fallback. Features missing from the dataset are skipped.
func (s *Service) featureMatrix(features []string) [][]float64 {
	cols := make([][]float64, 0, len(features))
	for _, f := range features {
		if vec, err := s.ds.Expression(f); err == nil {
			cols = append(cols, vec)
		}
	}
	if len(cols) == 0 {
		return nil
	}
	rows := make([][]float64, s.ds.CellCount())
	for i := range rows {
		row := make([]float64, len(cols))
		for j, col := range cols {
			row[j] = col[i]
		}
		rows[i] = row
	}
	return rows
}

func toLayoutColumn(col dataset.MetaColumn) layout.Column {
	if col.Kind == dataset.KindNumeric {
		return layout.Column{Kind: layout.Numeric, Values: col.Values}
	}
	return layout.Column{Kind: layout.Categorical, Labels: col.Labels}
}

func (s *Service) withDefaults(req Request) Request {
	req.Kind = strings.ToLower(strings.TrimSpace(req.Kind))
	if req.GroupBy == "" {
		req.GroupBy = s.cfg.Plot.GroupBy
	}
	if req.Basis == "" {
		req.Basis = s.cfg.Plot.Basis
	}
	if req.PanelSize == 0 {
		req.PanelSize = s.cfg.Plot.PanelSize
	}
	if req.TechnicalFilter == "" {
		req.TechnicalFilter = s.cfg.Plot.TechnicalFilter
	}
	if req.Method == "" {
		req.Method = s.cfg.Plot.ClusterMethod
	}
	if req.Theme == "" {
		req.Theme = s.cfg.Plot.Theme
	}
	return req
}

func (s *Service) themeFor(name string) theme.Theme {
	if s.themes == nil {
		return theme.Default()
	}
	return s.themes.Theme(name)
}

func (s *Service) snapshot(ctx context.Context, html []byte, t theme.Theme) ([]byte, error) {
	if err := plot.EnsureHeadlessAvailable(ctx); err != nil {
		return nil, err
	}
	return plot.RenderHTMLToPNG(ctx, html, t.WidthPx, t.HeightPx)
}

func (s *Service) recordAudit(ctx context.Context, req Request, dur time.Duration, renderErr error) {
	if s.audit == nil {
		return
	}
	entry := renderlog.Entry{
		Dataset:    s.ds.Name,
		Kind:       req.Kind,
		DurationMs: dur.Milliseconds(),
		Status:     "ok",
	}
	if renderErr != nil {
		entry.Status = "error"
		entry.Detail = renderErr.Error()
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		logger.Warnf("[render] audit log write failed: %v", err)
	}
}

func writeArtifact(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func boolValue(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}
