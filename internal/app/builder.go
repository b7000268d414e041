package app

import (
	"context"
	"fmt"
	"strings"

	"scview/internal/config"
	"scview/internal/dataset"
	"scview/internal/logger"
	"scview/internal/markers"
	"scview/internal/render"
	"scview/internal/store/gallery"
	"scview/internal/store/renderlog"
	"scview/internal/theme"
	apihttp "scview/internal/transport/http/api"
)

// AppBuilder constructs an App step by step. The function fields exist so
// tests can substitute individual stages.
type AppBuilder struct {
	cfg *config.Config

	datasetFn func(string) (*dataset.Dataset, error)
	markersFn func(string) (*markers.Table, error)
	themesFn  func(string) (*theme.Registry, error)
	galleryFn func(string) (*gallery.Store, error)
	auditFn   func(string) (*renderlog.Log, error)
	serverFn  func(apihttp.ServerConfig) (*apihttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:       cfg,
		datasetFn: dataset.Load,
		markersFn: dataset.LoadMarkerTable,
		themesFn:  theme.NewRegistry,
		galleryFn: gallery.New,
		auditFn:   renderlog.Open,
		serverFn:  apihttp.NewServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Build loads the dataset and marker table, opens the stores and wires the
// render service into the HTTP server.
func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	ds, err := b.datasetFn(cfg.Dataset.Path)
	if err != nil {
		return nil, fmt.Errorf("loading dataset %s: %w", cfg.Dataset.Path, err)
	}
	logger.Infof("✓ dataset %s loaded: %d cells, %d genes, columns=[%s]",
		ds.Name, ds.CellCount(), len(ds.Genes), strings.Join(ds.ColumnNames(), ", "))

	var table *markers.Table
	if path := strings.TrimSpace(cfg.Dataset.Markers); path != "" {
		table, err = b.markersFn(path)
		if err != nil {
			return nil, fmt.Errorf("loading marker table %s: %w", path, err)
		}
		logger.Infof("✓ marker table loaded: %d groups", table.Len())
	} else {
		logger.Warnf("no marker table configured; panel-based plots are unavailable")
	}

	var themes *theme.Registry
	if path := strings.TrimSpace(cfg.Themes.Path); path != "" {
		themes, err = b.themesFn(path)
		if err != nil {
			return nil, fmt.Errorf("loading themes %s: %w", path, err)
		}
	}

	gal, err := b.galleryFn(cfg.Store.GalleryPath)
	if err != nil {
		return nil, fmt.Errorf("opening gallery store: %w", err)
	}
	audit, err := b.auditFn(cfg.Store.RenderLogPath)
	if err != nil {
		return nil, fmt.Errorf("opening render log: %w", err)
	}

	svc, err := render.NewService(cfg, ds, table, themes, gal, audit)
	if err != nil {
		return nil, err
	}

	server, err := b.serverFn(apihttp.ServerConfig{
		Addr:      cfg.App.HTTPAddr,
		Service:   svc,
		Gallery:   gal,
		Audit:     audit,
		OutputDir: cfg.App.OutputDir,
	})
	if err != nil {
		return nil, err
	}

	return &App{cfg: cfg, svc: svc, server: server, audit: audit}, nil
}
