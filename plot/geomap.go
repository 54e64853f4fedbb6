package plot

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/paulmach/orb"
	xdraw "golang.org/x/image/draw"

	asilib "github.com/mshumko/aurora-asi-lib"
	"github.com/mshumko/aurora-asi-lib/internal/metrics"
	"github.com/mshumko/aurora-asi-lib/skymap"
)

// DefaultMinElevation masks pixels near the horizon on geographic maps,
// where the mapping error grows without bound.
const DefaultMinElevation = 10.0

const mapWidthPx = 800

var (
	mapBackground = color.RGBA{R: 18, G: 18, B: 28, A: 255}
	siteColor     = color.RGBA{R: 255, G: 215, B: 0, A: 255}
	trackColor    = color.RGBA{R: 255, G: 64, B: 64, A: 255}
)

// Map projects one frame onto a geographic latitude/longitude canvas using
// the skymap's pixel-corner grids at altKm. Pixels below the minimum
// elevation are masked. track, when non-empty, is drawn over the image,
// typically a satellite footprint; the site location is always marked.
func Map(meta asilib.Meta, frame asilib.Frame, sky *skymap.Skymap, altKm float64, track orb.LineString, opts Options) (*image.RGBA, error) {
	latGrid, lonGrid, err := sky.AtAltitude(altKm)
	if err != nil {
		return nil, err
	}
	if sky.Rows() != frame.Height || sky.Cols() != frame.Width {
		return nil, fmt.Errorf("frame is %dx%d but the skymap maps %dx%d pixels",
			frame.Width, frame.Height, sky.Cols(), sky.Rows())
	}

	minEl := opts.MinElevation
	if minEl == 0 {
		minEl = DefaultMinElevation
	}

	bound, ok := mappedBound(sky, latGrid, lonGrid, minEl)
	if !ok {
		return nil, fmt.Errorf("%s has no mapped pixels above %.0f degrees elevation", meta, minEl)
	}
	for _, p := range track {
		bound = bound.Extend(p)
	}
	bound = bound.Extend(orb.Point{meta.Longitude, meta.Latitude})
	bound = pad(bound, 0.05)

	// Equirectangular: square degrees scaled by cos(latitude) so the map
	// is not badly stretched at auroral latitudes.
	midLat := (bound.Min.Y() + bound.Max.Y()) / 2
	aspect := (bound.Max.Y() - bound.Min.Y()) / ((bound.Max.X() - bound.Min.X()) * math.Cos(midLat*math.Pi/180))
	width := mapWidthPx
	height := int(float64(width) * aspect)
	if height < 1 {
		height = 1
	}

	toXY := func(lat, lon float64) (int, int) {
		fx := (lon - bound.Min.X()) / (bound.Max.X() - bound.Min.X())
		fy := (bound.Max.Y() - lat) / (bound.Max.Y() - bound.Min.Y())
		return int(fx * float64(width-1)), int(fy * float64(height-1))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(mapBackground), image.Point{}, xdraw.Src)

	cmap := opts.colormap(meta.Network)
	bounds := opts.bounds(frame.Pix)
	norm := opts.norm()

	for py := 0; py < sky.Rows(); py++ {
		for px := 0; px < sky.Cols(); px++ {
			if el := sky.Elevation[py][px]; math.IsNaN(el) || el < minEl {
				continue
			}
			lats := [4]float64{latGrid[py][px], latGrid[py][px+1], latGrid[py+1][px], latGrid[py+1][px+1]}
			lons := [4]float64{lonGrid[py][px], lonGrid[py][px+1], lonGrid[py+1][px], lonGrid[py+1][px+1]}
			if anyNaN(lats[:]) || anyNaN(lons[:]) {
				continue
			}

			v, err := normalize(float64(frame.At(px, py)), bounds, norm)
			if err != nil {
				return nil, err
			}
			c := cmap(v)

			// Fill the axis-aligned box of the pixel's corner
			// quadrilateral. At ASI pixel scales the difference from the
			// true quadrilateral is under a map pixel except at the mask
			// edge.
			x0, y0 := toXY(maxOf(lats[:]), minOf(lons[:]))
			x1, y1 := toXY(minOf(lats[:]), maxOf(lons[:]))
			for y := y0; y <= y1; y++ {
				for x := x0; x <= x1; x++ {
					img.SetRGBA(x, y, c)
				}
			}
		}
	}

	sx, sy := toXY(meta.Latitude, meta.Longitude)
	drawCross(img, sx, sy, siteColor)

	for i := 1; i < len(track); i++ {
		x0, y0 := toXY(track[i-1].Y(), track[i-1].X())
		x1, y1 := toXY(track[i].Y(), track[i].X())
		drawLine(img, x0, y0, x1, y1, trackColor)
	}

	if !opts.NoLabel {
		label := fmt.Sprintf("%s %s %.0f km", meta,
			frame.Time.UTC().Format("2006-01-02 15:04:05"), altKm)
		drawLabel(img, label, 4, height-6)
	}

	metrics.RecordFramesRendered("map", 1)
	return img, nil
}

// mappedBound returns the geographic bounding box of the corners of every
// pixel at or above minEl.
func mappedBound(sky *skymap.Skymap, latGrid, lonGrid [][]float64, minEl float64) (orb.Bound, bool) {
	b := orb.Bound{Min: orb.Point{math.Inf(1), math.Inf(1)}, Max: orb.Point{math.Inf(-1), math.Inf(-1)}}
	found := false
	for py := 0; py < sky.Rows(); py++ {
		for px := 0; px < sky.Cols(); px++ {
			if el := sky.Elevation[py][px]; math.IsNaN(el) || el < minEl {
				continue
			}
			for _, c := range [][2]int{{py, px}, {py, px + 1}, {py + 1, px}, {py + 1, px + 1}} {
				lat, lon := latGrid[c[0]][c[1]], lonGrid[c[0]][c[1]]
				if math.IsNaN(lat) || math.IsNaN(lon) {
					continue
				}
				b = b.Extend(orb.Point{lon, lat})
				found = true
			}
		}
	}
	return b, found
}

func pad(b orb.Bound, frac float64) orb.Bound {
	dx := (b.Max.X() - b.Min.X()) * frac
	dy := (b.Max.Y() - b.Min.Y()) * frac
	return orb.Bound{
		Min: orb.Point{b.Min.X() - dx, b.Min.Y() - dy},
		Max: orb.Point{b.Max.X() + dx, b.Max.Y() + dy},
	}
}

func anyNaN(vs []float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func drawCross(img *image.RGBA, x, y int, c color.RGBA) {
	for d := -4; d <= 4; d++ {
		setSafe(img, x+d, y, c)
		setSafe(img, x, y+d, c)
	}
}

// drawLine rasterizes a segment with the integer Bresenham walk.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		setSafe(img, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func setSafe(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Rect) {
		img.SetRGBA(x, y, c)
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
