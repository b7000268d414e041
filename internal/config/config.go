package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"scview/internal/layout"
	"scview/internal/markers"
)

// Config is the top-level service configuration.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Dataset DatasetConfig `mapstructure:"dataset"`
	Plot    PlotConfig    `mapstructure:"plot"`
	Store   StoreConfig   `mapstructure:"store"`
	Themes  ThemesConfig  `mapstructure:"themes"`
}

type AppConfig struct {
	Env       string `mapstructure:"env"`
	LogLevel  string `mapstructure:"log_level"`
	HTTPAddr  string `mapstructure:"http_addr"`
	LogPath   string `mapstructure:"log_path"`
	OutputDir string `mapstructure:"output_dir"`
}

type DatasetConfig struct {
	Path    string `mapstructure:"path"`
	Markers string `mapstructure:"markers"`
}

// PlotConfig carries the render defaults a request can override.
type PlotConfig struct {
	PanelSize       int    `mapstructure:"panel_size"`
	TechnicalFilter string `mapstructure:"technical_filter"`
	UniqueOnly      bool   `mapstructure:"unique_only"`
	ClusterMethod   string `mapstructure:"cluster_method"`
	Basis           string `mapstructure:"basis"`
	GroupBy         string `mapstructure:"group_by"`
	Theme           string `mapstructure:"theme"`
	SnapshotPNG     bool   `mapstructure:"snapshot_png"`
}

type StoreConfig struct {
	GalleryPath   string `mapstructure:"gallery_path"`
	RenderLogPath string `mapstructure:"render_log_path"`
}

type ThemesConfig struct {
	Path string `mapstructure:"path"`
}

// Load reads the YAML config at path, applies defaults and validates it.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":8780"
	}
	if c.App.OutputDir == "" {
		c.App.OutputDir = "out"
	}
	if c.Plot.PanelSize == 0 {
		c.Plot.PanelSize = markers.DefaultPanelSize
	}
	if c.Plot.TechnicalFilter == "" {
		c.Plot.TechnicalFilter = "none"
	}
	if c.Plot.ClusterMethod == "" {
		c.Plot.ClusterMethod = "ward"
	}
	if c.Plot.Basis == "" {
		c.Plot.Basis = "umap"
	}
	if c.Plot.Theme == "" {
		c.Plot.Theme = "default"
	}
	if c.Store.GalleryPath == "" {
		c.Store.GalleryPath = "data/gallery.db"
	}
	if c.Store.RenderLogPath == "" {
		c.Store.RenderLogPath = "data/render_log.db"
	}
}

func validate(c *Config) error {
	if c.Dataset.Path == "" {
		return fmt.Errorf("dataset.path is required")
	}
	if c.Plot.PanelSize < 0 {
		return fmt.Errorf("plot.panel_size must be positive, got %d", c.Plot.PanelSize)
	}
	if m := c.Plot.ClusterMethod; !layout.IsLinkage(m) && m != layout.MethodByMetadata {
		return fmt.Errorf("plot.cluster_method %q is not a known method", m)
	}
	if _, ok := markers.TechnicalFilter(c.Plot.TechnicalFilter, nil); !ok {
		return fmt.Errorf("plot.technical_filter %q is not a known filter mode", c.Plot.TechnicalFilter)
	}
	return nil
}
