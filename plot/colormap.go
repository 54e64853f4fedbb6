// Package plot renders frames, keograms, and geographic maps to images.
//
// The renderers return image.Image values, so output can go anywhere the
// standard image encoders reach; WritePNG and the gif animation in this
// package cover the common cases.
package plot

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	asilib "github.com/mshumko/aurora-asi-lib"
)

// Bounds is the intensity range mapped onto the color scale.
type Bounds struct {
	Min float64
	Max float64
}

// AutoBounds picks a color range from the pixel distribution: the lower
// bound is the first quartile and the upper bound the 98th percentile,
// capped at ten times the lower bound. This range works well for most
// auroral images, where the sky background dominates the histogram.
func AutoBounds(pix []uint16) Bounds {
	if len(pix) == 0 {
		return Bounds{Min: 0, Max: 1}
	}
	sorted := make([]uint16, len(pix))
	copy(sorted, pix)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	lower := float64(sorted[len(sorted)/4])
	upper := float64(sorted[len(sorted)*98/100])
	if capped := lower * 10; capped < upper && capped > lower {
		upper = capped
	}
	if upper <= lower {
		upper = lower + 1
	}
	return Bounds{Min: lower, Max: upper}
}

// Norm selects the intensity-to-color normalization.
type Norm string

const (
	// NormLog is the default: auroral intensity spans orders of magnitude.
	NormLog Norm = "log"
	NormLin Norm = "lin"
)

// normalize maps v into [0, 1] under the bounds and norm.
func normalize(v float64, b Bounds, n Norm) (float64, error) {
	switch n {
	case NormLin, "":
		return clamp01((v - b.Min) / (b.Max - b.Min)), nil
	case NormLog:
		lo := math.Max(b.Min, 1)
		hi := math.Max(b.Max, lo+1)
		if v < lo {
			v = lo
		}
		return clamp01(math.Log(v/lo) / math.Log(hi/lo)), nil
	default:
		return 0, fmt.Errorf("unknown color norm %q (use %q or %q)", n, NormLin, NormLog)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Colormap converts a normalized intensity in [0, 1] to a color.
type Colormap func(v float64) color.RGBA

// Gray is the monochrome colormap used for THEMIS and TREx NIR imagery.
func Gray(v float64) color.RGBA {
	g := uint8(math.Round(clamp01(v) * 255))
	return color.RGBA{R: g, G: g, B: g, A: 255}
}

// Reds maps intensity to black-through-red, matching the 630.0 nm red-line
// emission REGO observes.
func Reds(v float64) color.RGBA {
	v = clamp01(v)
	r := uint8(math.Round(v * 255))
	dim := uint8(math.Round(v * v * 96))
	return color.RGBA{R: r, G: dim, B: dim, A: 255}
}

// DefaultColormap returns the conventional colormap for a network.
func DefaultColormap(n asilib.Network) Colormap {
	if n == asilib.REGO {
		return Reds
	}
	return Gray
}
