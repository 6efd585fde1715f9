package render

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Colormap is a continuous colour ramp interpolated in Lab space.
type Colormap []colorful.Color

// ColorBrewer sequential ramps.
var (
	OrRd = mustRamp("#fff7ec", "#fee8c8", "#fdd49e", "#fdbb84", "#fc8d59", "#ef6548", "#d7301f", "#b30000", "#7f0000")

	YlOrRd = mustRamp("#ffffcc", "#ffeda0", "#fed976", "#feb24c", "#fd8d3c", "#fc4e2a", "#e31a1c", "#bd0026", "#800026")
)

// Fixed colours.
var (
	missingColor = mustHex("#d3d3d3")
	edgeColor    = color.Black
	white        = color.White
)

// tab20 leading colours, used for categorical chart slices.
var tab20 = []colorful.Color{
	mustHex("#1f77b4"), mustHex("#aec7e8"), mustHex("#ff7f0e"), mustHex("#ffbb78"), mustHex("#2ca02c"),
	mustHex("#98df8a"), mustHex("#d62728"), mustHex("#ff9896"), mustHex("#9467bd"), mustHex("#c5b0d5"),
	mustHex("#8c564b"), mustHex("#c49c94"), mustHex("#e377c2"), mustHex("#f7b6d2"), mustHex("#7f7f7f"),
	mustHex("#c7c7c7"), mustHex("#bcbd22"), mustHex("#dbdb8d"), mustHex("#17becf"), mustHex("#9edae5"),
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

func mustRamp(hex ...string) Colormap {
	cm := make(Colormap, len(hex))
	for i, h := range hex {
		cm[i] = mustHex(h)
	}
	return cm
}

// At returns the colour at t in [0, 1]; t is clamped.
func (cm Colormap) At(t float64) colorful.Color {
	if math.IsNaN(t) || t <= 0 {
		return cm[0]
	}
	if t >= 1 {
		return cm[len(cm)-1]
	}
	pos := t * float64(len(cm)-1)
	i := int(pos)
	return cm[i].BlendLab(cm[i+1], pos-float64(i)).Clamped()
}

// Discrete samples n evenly spaced colours from the ramp.
func (cm Colormap) Discrete(n int) []colorful.Color {
	out := make([]colorful.Color, n)
	for i := range out {
		if n == 1 {
			out[i] = cm.At(0.5)
			continue
		}
		out[i] = cm.At(float64(i) / float64(n-1))
	}
	return out
}

// norm maps data values onto [0, 1].
type norm struct {
	min, max float64
	log      bool
}

// newNorm picks a logarithmic scale when both ends are positive and a linear
// one otherwise.
func newNorm(values []int) norm {
	if len(values) == 0 {
		return norm{min: 0, max: 1}
	}
	n := norm{min: float64(values[0]), max: float64(values[0])}
	for _, v := range values[1:] {
		n.min = math.Min(n.min, float64(v))
		n.max = math.Max(n.max, float64(v))
	}
	n.log = n.min > 0 && n.max > 0
	return n
}

func (n norm) apply(v float64) float64 {
	if n.max == n.min {
		return 0
	}
	if n.log {
		if v <= 0 {
			return 0
		}
		return (math.Log(v) - math.Log(n.min)) / (math.Log(n.max) - math.Log(n.min))
	}
	return (v - n.min) / (n.max - n.min)
}

func (n norm) inverse(t float64) float64 {
	if n.log {
		return math.Exp(math.Log(n.min) + t*(math.Log(n.max)-math.Log(n.min)))
	}
	return n.min + t*(n.max-n.min)
}
