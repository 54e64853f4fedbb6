package plot

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	asilib "github.com/mshumko/aurora-asi-lib"
	"github.com/mshumko/aurora-asi-lib/internal/metrics"
	"github.com/mshumko/aurora-asi-lib/skymap"
)

// Options controls the renderers. The zero value picks everything
// automatically: auto bounds, log norm, the network's colormap, and a
// site/time label.
type Options struct {
	Bounds   *Bounds  // nil means AutoBounds per image
	Norm     Norm     // "" means NormLog
	Colormap Colormap // nil means DefaultColormap(network)

	// NoLabel suppresses the site and timestamp annotation.
	NoLabel bool

	// Cardinal draws N/E/S/W letters at the horizon, oriented from the
	// skymap azimuth grid. Requires a skymap.
	Cardinal bool

	// MinElevation masks pixels below this elevation in degrees on
	// geographic maps. Zero means the 10 degree default.
	MinElevation float64
}

func (o Options) norm() Norm {
	if o.Norm == "" {
		return NormLog
	}
	return o.Norm
}

func (o Options) colormap(n asilib.Network) Colormap {
	if o.Colormap != nil {
		return o.Colormap
	}
	return DefaultColormap(n)
}

func (o Options) bounds(pix []uint16) Bounds {
	if o.Bounds != nil {
		return *o.Bounds
	}
	return AutoBounds(pix)
}

// Fisheye renders one frame in instrument coordinates, one output pixel per
// detector pixel. sky may be nil when Cardinal is off.
func Fisheye(meta asilib.Meta, frame asilib.Frame, sky *skymap.Skymap, opts Options) (*image.RGBA, error) {
	cmap := opts.colormap(meta.Network)
	bounds := opts.bounds(frame.Pix)
	norm := opts.norm()

	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			v, err := normalize(float64(frame.At(x, y)), bounds, norm)
			if err != nil {
				return nil, err
			}
			// Row 0 is the northern edge; image rows grow downward, so
			// north stays up without flipping.
			img.SetRGBA(x, y, cmap(v))
		}
	}

	if !opts.NoLabel {
		label := fmt.Sprintf("%s %s", meta, frame.Time.UTC().Format("2006-01-02 15:04:05"))
		drawLabel(img, label, 4, frame.Height-6)
	}
	if opts.Cardinal {
		if sky == nil {
			return nil, fmt.Errorf("cardinal directions need a skymap")
		}
		drawCardinal(img, sky)
	}

	metrics.RecordFramesRendered("fisheye", 1)
	return img, nil
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

// EncodePNG writes img to w as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

var labelColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

func drawLabel(img *image.RGBA, text string, x, y int) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// drawCardinal places N, E, S, and W at the lowest-elevation mapped pixel
// in each azimuth direction.
func drawCardinal(img *image.RGBA, sky *skymap.Skymap) {
	directions := []struct {
		letter string
		az     float64
	}{
		{"N", 0}, {"E", 90}, {"S", 180}, {"W", 270},
	}
	for _, dir := range directions {
		x, y, ok := horizonPixel(sky, dir.az)
		if !ok {
			continue
		}
		// Keep the letter inside the canvas.
		x = clampInt(x-3, 0, img.Rect.Dx()-8)
		y = clampInt(y+5, 13, img.Rect.Dy()-1)
		drawLabel(img, dir.letter, x, y)
	}
}

// horizonPixel finds the mapped pixel closest to azimuth az with the lowest
// elevation, i.e. where that compass direction meets the horizon.
func horizonPixel(sky *skymap.Skymap, az float64) (x, y int, ok bool) {
	const azTolerance = 5.0
	best := math.Inf(1)
	for py := 0; py < sky.Rows(); py++ {
		for px := 0; px < sky.Cols(); px++ {
			el := sky.Elevation[py][px]
			if math.IsNaN(el) {
				continue
			}
			d := math.Abs(angleDiff(sky.Azimuth[py][px], az))
			if d > azTolerance {
				continue
			}
			if el < best {
				best = el
				x, y, ok = px, py, true
			}
		}
	}
	return x, y, ok
}

func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b+540, 360)
	return d - 180
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
