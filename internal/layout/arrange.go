package layout

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"scview/internal/logger"
)

// MethodByMetadata orders columns by sorting on metadata instead of
// clustering coordinates.
const MethodByMetadata = "by-metadata"

var (
	ErrUnknownClusteringMethod = errors.New("unknown clustering method")
	ErrUnknownAnnotationColumn = errors.New("unknown annotation column")
)

// ColumnKind distinguishes categorical from numeric metadata columns.
type ColumnKind int

const (
	Categorical ColumnKind = iota
	Numeric
)

// Column is one metadata column, sample-aligned. Categorical columns use
// Labels (empty string = missing); numeric columns use Values (NaN =
// missing).
type Column struct {
	Kind   ColumnKind
	Labels []string
	Values []float64
}

// Input is the per-call snapshot the arranger works on. Coords are the
// primary-axis coordinates per sample (nil when no embedding is available);
// Matrix holds the per-sample feature vectors that will actually be rendered,
// used as a degraded clustering fallback.
type Input struct {
	Samples []string
	Coords  [][]float64
	Matrix  [][]float64
	Columns map[string]Column
}

// Options select the ordering strategy and the annotation tracks to color.
type Options struct {
	Method      string
	Annotations []string
	OrderBy     []string
}

// Track is the color-resolution rule for one annotation column: a level→hex
// map for categorical tracks, a Ramp for numeric ones.
type Track struct {
	Kind   ColumnKind        `json:"kind"`
	Levels []string          `json:"levels,omitempty"`
	Colors map[string]string `json:"colors,omitempty"`
	Scale  *Ramp             `json:"scale,omitempty"`
}

// Arrangement is the column order plus annotation color scheme handed to the
// heatmap renderer. Degraded flags that ordering fell back to clustering on
// the displayed matrix because no coordinates were available.
type Arrangement struct {
	Order      []string         `json:"order"`
	Tracks     map[string]Track `json:"tracks"`
	TrackOrder []string         `json:"track_order"`
	Degraded   bool             `json:"degraded"`
}

// Arrange decides the column ordering strategy and builds the annotation
// color scheme. Hierarchical methods cluster the sample coordinates
// (Euclidean distances); MethodByMetadata sorts on the OrderBy columns and
// appends them to the annotation tracks so the explicit order is visually
// explained.
func Arrange(in Input, opts Options) (*Arrangement, error) {
	if opts.Method != MethodByMetadata && !IsLinkage(opts.Method) {
		return nil, fmt.Errorf("method %q: %w", opts.Method, ErrUnknownClusteringMethod)
	}

	tracks := append([]string(nil), opts.Annotations...)
	if opts.Method == MethodByMetadata {
		if len(opts.OrderBy) == 0 {
			return nil, fmt.Errorf("by-metadata ordering designates no column: %w", ErrUnknownAnnotationColumn)
		}
		for _, name := range opts.OrderBy {
			if !contains(tracks, name) {
				tracks = append(tracks, name)
			}
		}
	}
	for _, name := range tracks {
		if _, ok := in.Columns[name]; !ok {
			return nil, fmt.Errorf("column %q: %w", name, ErrUnknownAnnotationColumn)
		}
	}

	arr := &Arrangement{
		Tracks:     make(map[string]Track, len(tracks)),
		TrackOrder: tracks,
	}

	if opts.Method == MethodByMetadata {
		arr.Order = orderByMetadata(in, opts.OrderBy)
	} else {
		order, degraded := orderByClustering(in, opts.Method)
		arr.Order = order
		arr.Degraded = degraded
	}

	numericSeen := 0
	for _, name := range tracks {
		col := in.Columns[name]
		if col.Kind == Numeric {
			arr.Tracks[name] = numericTrack(col, numericSeen)
			numericSeen++
		} else {
			arr.Tracks[name] = categoricalTrack(col)
		}
	}
	return arr, nil
}

func orderByClustering(in Input, method string) (order []string, degraded bool) {
	vecs := in.Coords
	if len(vecs) == 0 {
		degraded = true
		vecs = in.Matrix
		if len(vecs) == 0 {
			// Nothing to cluster on at all; keep the input order.
			logger.Warnf("layout: no coordinates or matrix available, keeping input column order")
			return append([]string(nil), in.Samples...), true
		}
		logger.Warnf("layout: no coordinates available, clustering on the displayed matrix (%s linkage, degraded ordering)", method)
	}
	idx := hclustOrder(vecs, method)
	order = make([]string, 0, len(in.Samples))
	for _, i := range idx {
		if i < len(in.Samples) {
			order = append(order, in.Samples[i])
		}
	}
	return order, degraded
}

func orderByMetadata(in Input, cols []string) []string {
	idx := make([]int, len(in.Samples))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		for _, name := range cols {
			col := in.Columns[name]
			if col.Kind == Numeric {
				va, vb := numericAt(col.Values, idx[a]), numericAt(col.Values, idx[b])
				if va != vb {
					return va < vb
				}
				continue
			}
			la, lb := labelAt(col.Labels, idx[a]), labelAt(col.Labels, idx[b])
			if la != lb {
				return la < lb
			}
		}
		return false
	})
	order := make([]string, len(idx))
	for i, j := range idx {
		order[i] = in.Samples[j]
	}
	return order
}

func categoricalTrack(col Column) Track {
	var levels []string
	seen := make(map[string]bool)
	for i := range col.Labels {
		l := labelAt(col.Labels, i)
		if !seen[l] {
			seen[l] = true
			levels = append(levels, l)
		}
	}
	palette := CategoricalPalette(len(levels))
	colors := make(map[string]string, len(levels))
	for i, l := range levels {
		colors[l] = palette[i]
	}
	return Track{Kind: Categorical, Levels: levels, Colors: colors}
}

func numericTrack(col Column, trackIdx int) Track {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range col.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo > hi {
		lo, hi = 0, 0
	}
	return Track{
		Kind:  Numeric,
		Scale: &Ramp{Min: lo, Max: hi, Low: rampLow, High: trackHue(trackIdx)},
	}
}

// labelAt coerces missing categorical values to the explicit NA level.
func labelAt(labels []string, i int) string {
	if i >= len(labels) || labels[i] == "" {
		return naLevel
	}
	return labels[i]
}

// numericAt sorts missing numeric values after every real value.
func numericAt(values []float64, i int) float64 {
	if i >= len(values) || math.IsNaN(values[i]) {
		return math.Inf(1)
	}
	return values[i]
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
