package colorscale

import (
	"math"
)

// Default ramp endpoints and the no-data background.
var (
	DefaultLow    = Color{R: 246, G: 251, B: 247}
	DefaultHigh   = Color{R: 14, G: 87, B: 53}
	DefaultNoData = Color{R: 0xf6, G: 0xfb, B: 0xf7}
)

// Range holds the observed extrema of a metric.
type Range struct {
	Min, Max float64
	// Count is the number of present values the range was computed from.
	Count int
}

// RangeOf computes the range of the non-NaN values. ok is false when no
// value is present.
func RangeOf(values []float64) (r Range, ok bool) {
	r.Min = math.Inf(1)
	r.Max = math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < r.Min {
			r.Min = v
		}
		if v > r.Max {
			r.Max = v
		}
		r.Count++
	}
	if r.Count == 0 {
		return Range{}, false
	}
	return r, true
}

// Scale interpolates linearly between Low and High.
type Scale struct {
	Low    Color
	High   Color
	NoData Color
}

// Default returns the light-to-deep-green scale.
func Default() Scale {
	return Scale{Low: DefaultLow, High: DefaultHigh, NoData: DefaultNoData}
}

// T returns the position of v within r. A degenerate range divides by 1,
// which places every value of a single-valued metric at the low end.
func (r Range) T(v float64) float64 {
	span := r.Max - r.Min
	if span == 0 {
		span = 1
	}
	return (v - r.Min) / span
}

// ColorFor returns the fill for v. NaN marks a missing value and always
// yields NoData, whatever the range.
func (s Scale) ColorFor(v float64, r Range) Color {
	if math.IsNaN(v) {
		return s.NoData
	}
	t := r.T(v)
	return Color{
		R: lerp(s.Low.R, s.High.R, t),
		G: lerp(s.Low.G, s.High.G, t),
		B: lerp(s.Low.B, s.High.B, t),
	}
}

func lerp(a, b uint8, t float64) uint8 {
	v := math.Round(float64(a) + t*(float64(b)-float64(a)))
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
