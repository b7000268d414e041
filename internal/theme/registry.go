package theme

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"scview/internal/logger"
)

// Theme bundles the cosmetic choices shared by every chart of a figure.
type Theme struct {
	Name          string `mapstructure:"name" yaml:"name" json:"name"`
	Background    string `mapstructure:"background" yaml:"background" json:"background"`
	TextPrimary   string `mapstructure:"text_primary" yaml:"text_primary" json:"text_primary"`
	TextSecondary string `mapstructure:"text_secondary" yaml:"text_secondary" json:"text_secondary"`
	GridLine      string `mapstructure:"grid_line" yaml:"grid_line" json:"grid_line"`
	Separator     string `mapstructure:"separator" yaml:"separator" json:"separator"`
	RampLow       string `mapstructure:"ramp_low" yaml:"ramp_low" json:"ramp_low"`
	RampHigh      string `mapstructure:"ramp_high" yaml:"ramp_high" json:"ramp_high"`
	WidthPx       int    `mapstructure:"width_px" yaml:"width_px" json:"width_px"`
	HeightPx      int    `mapstructure:"height_px" yaml:"height_px" json:"height_px"`
}

// Default is the theme used when no theme file is configured or a requested
// name is unknown.
func Default() Theme {
	return Theme{
		Name:          "default",
		Background:    "#ffffff",
		TextPrimary:   "#1f2430",
		TextSecondary: "#6b7280",
		GridLine:      "#d1d5db",
		Separator:     "#9ca3af",
		RampLow:       "#ececec",
		RampHigh:      "#bb3754",
		WidthPx:       900,
		HeightPx:      600,
	}
}

// themeSchema rejects malformed theme entries before they reach a renderer:
// colors must be hex strings and dimensions positive.
const themeSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "background": {"type": "string", "pattern": "^#[0-9a-fA-F]{6}$"},
    "text_primary": {"type": "string", "pattern": "^#[0-9a-fA-F]{6}$"},
    "text_secondary": {"type": "string", "pattern": "^#[0-9a-fA-F]{6}$"},
    "grid_line": {"type": "string", "pattern": "^#[0-9a-fA-F]{6}$"},
    "separator": {"type": "string", "pattern": "^#[0-9a-fA-F]{6}$"},
    "ramp_low": {"type": "string", "pattern": "^#[0-9a-fA-F]{6}$"},
    "ramp_high": {"type": "string", "pattern": "^#[0-9a-fA-F]{6}$"},
    "width_px": {"type": "integer", "minimum": 1},
    "height_px": {"type": "integer", "minimum": 1}
  },
  "additionalProperties": false
}`

var compiledThemeSchema = mustCompileThemeSchema()

func mustCompileThemeSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("theme.json", strings.NewReader(themeSchema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("theme.json")
}

type fileConfig struct {
	Themes map[string]Theme `mapstructure:"themes" yaml:"themes"`
}

// Snapshot is an immutable view of the loaded themes.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Themes   map[string]Theme
}

// ChangeListener fires after a successful reload.
type ChangeListener func(Snapshot)

// Registry loads named themes from a YAML file and watches it for edits.
// A failed reload keeps the previous snapshot.
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewRegistry reads the theme file and starts watching it.
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("theme registry requires a path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read theme config failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("theme reload failed, keeping previous themes: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot returns the current theme set.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Theme resolves a theme by name; unknown names fall back to Default so a
// render request never fails on cosmetics alone.
func (r *Registry) Theme(name string) Theme {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.snapshot.Themes[strings.TrimSpace(name)]; ok {
		return t
	}
	return Default()
}

// OnChange registers a listener notified after each successful reload.
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	cfg, err := readThemeFile(r.path)
	if err != nil {
		return err
	}
	themes := make(map[string]Theme, len(cfg.Themes))
	for name, t := range cfg.Themes {
		norm, err := normalizeTheme(name, t)
		if err != nil {
			return fmt.Errorf("theme %q: %w", name, err)
		}
		themes[norm.Name] = norm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Themes:   themes,
	}
	r.mu.Unlock()
	logger.Infof("theme registry loaded %d themes from %s", len(themes), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Errorf("theme listener panic: %v", rec)
				}
			}()
			cb(snap)
		}(fn)
	}
}

// normalizeTheme fills omitted fields from Default and validates the result
// against the theme schema.
func normalizeTheme(name string, t Theme) (Theme, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		t.Name = strings.TrimSpace(name)
	}
	def := Default()
	fill := func(dst *string, fallback string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = fallback
		}
	}
	fill(&t.Background, def.Background)
	fill(&t.TextPrimary, def.TextPrimary)
	fill(&t.TextSecondary, def.TextSecondary)
	fill(&t.GridLine, def.GridLine)
	fill(&t.Separator, def.Separator)
	fill(&t.RampLow, def.RampLow)
	fill(&t.RampHigh, def.RampHigh)
	if t.WidthPx <= 0 {
		t.WidthPx = def.WidthPx
	}
	if t.HeightPx <= 0 {
		t.HeightPx = def.HeightPx
	}
	if err := validateTheme(t); err != nil {
		return Theme{}, err
	}
	return t, nil
}

func validateTheme(t Theme) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return compiledThemeSchema.Validate(doc)
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Themes:   make(map[string]Theme, len(src.Themes)),
	}
	for name, t := range src.Themes {
		dst.Themes[name] = t
	}
	return dst
}

func readThemeFile(path string) (fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read theme config failed: %w", err)
	}
	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse theme config failed: %w", err)
	}
	return cfg, nil
}
