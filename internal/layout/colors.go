package layout

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// naLevel is the explicit level missing categorical values collapse to,
	// so absent metadata still renders instead of disappearing.
	naLevel = "NA"

	// rampLow is the neutral low end shared by all numeric ramps.
	rampLow = "#ececec"

	// naColor is returned for numeric values that carry no information
	// (NaN/Inf); the invariant is that every observed value resolves to a
	// color.
	naColor = "#cccccc"
)

// CategoricalPalette returns n distinct hex colors with evenly spaced hues.
func CategoricalPalette(n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		h := float64(i) * 360.0 / float64(n)
		out[i] = colorful.Hsv(h, 0.55, 0.85).Hex()
	}
	return out
}

// trackHue picks the high end of the i-th numeric track's ramp. Hues are
// spread over a coarse wheel so adjacent numeric tracks stay tellable apart.
func trackHue(i int) string {
	const slots = 8
	h := float64(i%slots) * 360.0 / slots
	return colorful.Hsv(h, 0.75, 0.8).Hex()
}

// Ramp is a two-point color scale spanning an observed numeric range.
type Ramp struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Low  string  `json:"low"`
	High string  `json:"high"`
}

// At resolves a value to a hex color by Lab-space interpolation across the
// ramp. Values outside [Min, Max] clamp to the ends; non-finite values get
// the NA color.
func (r Ramp) At(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return naColor
	}
	t := 0.0
	if r.Max > r.Min {
		t = (v - r.Min) / (r.Max - r.Min)
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	low, err := colorful.Hex(r.Low)
	if err != nil {
		low, _ = colorful.Hex(rampLow)
	}
	high, err := colorful.Hex(r.High)
	if err != nil {
		high, _ = colorful.Hex(trackHue(0))
	}
	return low.BlendLab(high, t).Clamped().Hex()
}
