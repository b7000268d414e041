package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scview/internal/config"
	"scview/internal/dataset"
	"scview/internal/markers"
	"scview/internal/store/gallery"
	"scview/internal/store/renderlog"
)

const serviceDataset = `{
  "name": "mini",
  "cells": ["c1", "c2", "c3", "c4"],
  "genes": ["CD3D", "MS4A1", "NKG7"],
  "expression": {
    "CD3D": [2.0, 0.0, 1.5, 0.0],
    "MS4A1": [0.0, 3.0, 0.0, 2.5],
    "NKG7": [0.5, 0.0, 0.0, 1.0]
  },
  "embeddings": {
    "umap": [[0, 0], [5, 5], [0.5, 0.2], [5.2, 4.8]]
  },
  "metadata": {
    "cluster": {"kind": "categorical", "labels": ["T", "B", "T", "B"]},
    "donor": {"kind": "categorical", "labels": ["d1", "d1", "d2", "d2"]}
  }
}`

func newTestService(t *testing.T) (*Service, *gallery.Store, *renderlog.Log, string) {
	t.Helper()
	ds, err := dataset.Parse([]byte(serviceDataset))
	require.NoError(t, err)

	tbl := markers.NewTable()
	tbl.Add("T", "CD3D", "NKG7")
	tbl.Add("B", "MS4A1")

	dir := t.TempDir()
	gal, err := gallery.New(filepath.Join(dir, "gallery.db"))
	require.NoError(t, err)
	audit, err := renderlog.Open(filepath.Join(dir, "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { audit.Close() })

	cfg := &config.Config{}
	cfg.App.OutputDir = filepath.Join(dir, "out")
	cfg.Plot.PanelSize = 2
	cfg.Plot.ClusterMethod = "ward"
	cfg.Plot.TechnicalFilter = "none"
	cfg.Plot.Basis = "umap"
	cfg.Plot.GroupBy = "cluster"

	svc, err := NewService(cfg, ds, tbl, nil, gal, audit)
	require.NoError(t, err)
	return svc, gal, audit, cfg.App.OutputDir
}

func TestRender_DotPlot(t *testing.T) {
	svc, gal, audit, outDir := newTestService(t)
	ctx := context.Background()

	res, err := svc.Render(ctx, Request{Kind: KindDotPlot})
	require.NoError(t, err)
	require.NotEmpty(t, res.Record.ID)
	assert.Equal(t, "mini", res.Record.Dataset)
	assert.Equal(t, KindDotPlot, res.Record.Kind)
	assert.False(t, res.Record.Degraded)
	assert.Contains(t, string(res.Record.Params), "dotplot", "request params stored with the record")

	require.NotNil(t, res.Image)
	assert.Contains(t, string(res.Image.HTML), "echarts")
	assert.Equal(t, res.Record.ID+".png", res.Image.Filename)
	assert.Contains(t, res.Image.Description, "mini")
	assert.Empty(t, res.Image.DataURI(), "no data uri without a png snapshot")

	// artifact landed in the output directory
	assert.Equal(t, filepath.Join(outDir, res.Record.ID+".html"), res.Record.HTMLPath)
	_, err = os.Stat(res.Record.HTMLPath)
	assert.NoError(t, err)

	// gallery round-trip
	got, err := gal.Get(ctx, res.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, KindDotPlot, got.Kind)

	// audit entry recorded
	entries, err := audit.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ok", entries[0].Status)
}

func TestRender_HeatmapDegraded(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	// An unknown basis leaves the arranger without coordinates, which must
	// fall back to clustering the displayed matrix.
	res, err := svc.Render(context.Background(), Request{
		Kind:        KindHeatmap,
		Basis:       "tsne",
		Annotations: []string{"cluster"},
	})
	require.NoError(t, err)
	assert.True(t, res.Record.Degraded)
}

func TestRender_HeatmapWithCoords(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	res, err := svc.Render(context.Background(), Request{
		Kind:        KindHeatmap,
		Annotations: []string{"cluster", "donor"},
	})
	require.NoError(t, err)
	assert.False(t, res.Record.Degraded)
}

func TestRender_OtherKinds(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	for _, req := range []Request{
		{Kind: KindEmbedding, ColorBy: "cluster"},
		{Kind: KindEmbedding, ColorBy: "CD3D"},
		{Kind: KindViolin, Gene: "CD3D"},
		{Kind: KindComposition, StackBy: "donor"},
	} {
		res, err := svc.Render(ctx, req)
		require.NoError(t, err, "kind=%s", req.Kind)
		assert.Equal(t, req.Kind, res.Record.Kind)
	}
}

func TestRender_UnknownKind(t *testing.T) {
	svc, _, audit, _ := newTestService(t)
	_, err := svc.Render(context.Background(), Request{Kind: "sankey"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownPlotKind))

	// failures still hit the audit log
	entries, err := audit.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0].Status)
}

func TestRender_PanelOverrides(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	uniq := true
	res, err := svc.Render(context.Background(), Request{
		Kind:       KindDotPlot,
		PanelSize:  1,
		UniqueOnly: &uniq,
		Groups:     []string{"T"},
	})
	require.NoError(t, err)
	assert.Equal(t, KindDotPlot, res.Record.Kind)
}

func TestDatasetSummary(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	sum := svc.DatasetSummary()
	assert.Equal(t, "mini", sum.Name)
	assert.Equal(t, 4, sum.Cells)
	assert.Equal(t, 3, sum.Genes)
	assert.Equal(t, []string{"cluster", "donor"}, sum.Columns)
	assert.Equal(t, []string{"T", "B"}, sum.MarkerGroups)
}

func TestThemeNames_NoRegistry(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	assert.Equal(t, []string{"default"}, svc.ThemeNames())
}
