package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
dataset:
  path: testdata/pbmc.json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8780", cfg.App.HTTPAddr)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 5, cfg.Plot.PanelSize)
	assert.Equal(t, "ward", cfg.Plot.ClusterMethod)
	assert.Equal(t, "none", cfg.Plot.TechnicalFilter)
	assert.Equal(t, "umap", cfg.Plot.Basis)
	assert.Equal(t, "data/gallery.db", cfg.Store.GalleryPath)
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
app:
  http_addr: ":9000"
  log_level: debug
dataset:
  path: ds.json
  markers: markers.json
plot:
  panel_size: "8"
  cluster_method: by-metadata
  technical_filter: both
  unique_only: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.App.HTTPAddr)
	assert.Equal(t, 8, cfg.Plot.PanelSize, "weakly typed values decode")
	assert.Equal(t, "by-metadata", cfg.Plot.ClusterMethod)
	assert.True(t, cfg.Plot.UniqueOnly)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing dataset path": "app:\n  env: dev\n",
		"bad cluster method":   "dataset:\n  path: x\nplot:\n  cluster_method: kmeans\n",
		"bad filter mode":      "dataset:\n  path: x\nplot:\n  technical_filter: ribo-only\n",
		"negative panel size":  "dataset:\n  path: x\nplot:\n  panel_size: -3\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}

	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
