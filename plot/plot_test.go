package plot

import (
	"context"
	"errors"
	"image/color"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"

	asilib "github.com/mshumko/aurora-asi-lib"
	"github.com/mshumko/aurora-asi-lib/keogram"
	"github.com/mshumko/aurora-asi-lib/skymap"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

const size = 8

func testSkymap() *skymap.Skymap {
	grid := func(fn func(y, x int) float64, n int) [][]float64 {
		g := make([][]float64, n)
		for y := range g {
			g[y] = make([]float64, n)
			for x := range g[y] {
				g[y][x] = fn(y, x)
			}
		}
		return g
	}
	// Elevation peaks at the center; azimuth points north in the top half
	// and south in the bottom half.
	elevation := grid(func(y, x int) float64 {
		dy := float64(y) - float64(size-1)/2
		dx := float64(x) - float64(size-1)/2
		return 90 - 12*math.Hypot(dx, dy)
	}, size)
	azimuth := grid(func(y, x int) float64 {
		if y < size/2 {
			return 0
		}
		return 180
	}, size)

	return &skymap.Skymap{
		Network:     "REGO",
		Location:    "GILL",
		Generated:   time.Date(2014, 11, 2, 0, 0, 0, 0, time.UTC),
		SiteLat:     56.38,
		SiteLon:     -94.64,
		Elevation:   elevation,
		Azimuth:     azimuth,
		AltitudesKm: []float64{110},
		Latitude: [][][]float64{
			grid(func(y, x int) float64 { return 54 + 0.5*float64(y) }, size+1),
		},
		Longitude: [][][]float64{
			grid(func(y, x int) float64 { return -96 + 0.5*float64(x) }, size+1),
		},
	}
}

func testMeta() asilib.Meta {
	return asilib.Meta{
		Network:   asilib.REGO,
		Location:  "GILL",
		Latitude:  56.38,
		Longitude: -94.64,
		Cadence:   3 * time.Second,
		Rows:      size,
		Cols:      size,
	}
}

func testFrame(t time.Time) asilib.Frame {
	pix := make([]uint16, size*size)
	for i := range pix {
		pix[i] = uint16(100 + i)
	}
	return asilib.Frame{Time: t, Width: size, Height: size, Pix: pix}
}

func TestAutoBounds(t *testing.T) {
	pix := make([]uint16, 100)
	for i := range pix {
		pix[i] = uint16(i + 1) // 1..100
	}
	b := AutoBounds(pix)
	if b.Min != 26 {
		t.Errorf("Min = %g, want 26 (first quartile)", b.Min)
	}
	// The 98th percentile (99) exceeds 10x the lower bound, so the cap
	// does not apply here.
	if b.Max != 99 {
		t.Errorf("Max = %g, want 99", b.Max)
	}
}

func TestAutoBoundsCapsUpper(t *testing.T) {
	// A distribution with a dim floor and hot pixels: quartile 10,
	// 98th percentile 4000. The upper bound caps at 100.
	pix := make([]uint16, 100)
	for i := range pix {
		pix[i] = 10
	}
	for i := 95; i < 100; i++ {
		pix[i] = 4000
	}
	b := AutoBounds(pix)
	if b.Min != 10 {
		t.Errorf("Min = %g, want 10", b.Min)
	}
	if b.Max != 100 {
		t.Errorf("Max = %g, want 100 (10x cap)", b.Max)
	}
}

func TestNormalize(t *testing.T) {
	b := Bounds{Min: 10, Max: 110}

	v, err := normalize(60, b, NormLin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0.5 {
		t.Errorf("lin normalize = %g, want 0.5", v)
	}

	v, err = normalize(200, b, NormLin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1 {
		t.Errorf("lin normalize above max = %g, want 1", v)
	}

	v, err = normalize(110, b, NormLog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1 {
		t.Errorf("log normalize at max = %g, want 1", v)
	}
	v, err = normalize(5, b, NormLog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0 {
		t.Errorf("log normalize below min = %g, want 0", v)
	}

	if _, err := normalize(1, b, Norm("sqrt")); err == nil {
		t.Error("expected an error for an unknown norm")
	}
}

func TestColormaps(t *testing.T) {
	if got := Gray(0); got != (color.RGBA{A: 255}) {
		t.Errorf("Gray(0) = %v", got)
	}
	if got := Gray(1); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("Gray(1) = %v", got)
	}
	if got := Reds(1); got.R != 255 || got.G >= got.R {
		t.Errorf("Reds(1) = %v, want red-dominant", got)
	}
}

func TestFisheye(t *testing.T) {
	meta := testMeta()
	frame := testFrame(time.Date(2019, 1, 1, 6, 0, 30, 0, time.UTC))

	img, err := Fisheye(meta, frame, testSkymap(), Options{Cardinal: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Rect.Dx() != size || img.Rect.Dy() != size {
		t.Errorf("image is %dx%d, want %dx%d", img.Rect.Dx(), img.Rect.Dy(), size, size)
	}

	if _, err := Fisheye(meta, frame, nil, Options{Cardinal: true}); err == nil {
		t.Error("expected an error for cardinal directions without a skymap")
	}
}

func TestKeogramImage(t *testing.T) {
	k := &keogram.Keogram{
		Meta:   testMeta(),
		Times:  []time.Time{time.Now(), time.Now().Add(3 * time.Second)},
		Labels: []float64{54, 55, 56},
		Data: [][]uint16{
			{10, 2000, 10},
			{10, 10, 10},
		},
	}
	bounds := Bounds{Min: 1, Max: 2000}
	img, err := Keogram(k, Options{Bounds: &bounds, Norm: NormLin, Colormap: Gray, NoLabel: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Rect.Dx() != 2 || img.Rect.Dy() != 3 {
		t.Fatalf("image is %dx%d, want 2x3", img.Rect.Dx(), img.Rect.Dy())
	}

	// Labels ascend, so row j=1 (the bright sample of time 0) lands at
	// image y = 1 either way, and j=0 (label 54) lands at the bottom.
	bright := img.RGBAAt(0, 1)
	dim := img.RGBAAt(1, 1)
	if bright.R <= dim.R {
		t.Errorf("bright sample %v not brighter than dim sample %v", bright, dim)
	}

	if _, err := Keogram(&keogram.Keogram{}, Options{}); err == nil {
		t.Error("expected an error for an empty keogram")
	}
}

func TestMap(t *testing.T) {
	meta := testMeta()
	frame := testFrame(time.Date(2019, 1, 1, 6, 0, 30, 0, time.UTC))
	track := orb.LineString{{-95.5, 55}, {-94.5, 56}}

	img, err := Map(meta, frame, testSkymap(), 110, track, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Rect.Dx() != mapWidthPx {
		t.Errorf("width = %d, want %d", img.Rect.Dx(), mapWidthPx)
	}
	if img.Rect.Dy() < 1 {
		t.Error("degenerate map height")
	}

	// Some pixel away from the background must carry image data.
	painted := false
	for y := 0; y < img.Rect.Dy() && !painted; y++ {
		for x := 0; x < img.Rect.Dx(); x++ {
			if c := img.RGBAAt(x, y); c != mapBackground {
				painted = true
				break
			}
		}
	}
	if !painted {
		t.Error("map contains only background")
	}

	if _, err := Map(meta, frame, testSkymap(), 230, nil, Options{}); err == nil {
		t.Error("expected an error for an unmapped altitude")
	}
}

func TestAnimate(t *testing.T) {
	start := time.Date(2019, 1, 1, 6, 0, 0, 0, time.UTC)
	meta := testMeta()
	files := asilib.FileSet{
		Paths:      []string{"a"},
		StartTimes: []time.Time{start},
		Loader: func(string) ([]asilib.Frame, error) {
			return []asilib.Frame{
				testFrame(start),
				testFrame(start.Add(3 * time.Second)),
				testFrame(start.Add(6 * time.Second)),
			}, nil
		},
	}
	req := asilib.LoadRequest{
		Network:  asilib.REGO,
		Location: "GILL",
		TimeRange: asilib.TimeRange{
			Start: start,
			End:   start.Add(time.Minute),
		},
	}
	im := asilib.NewImager(meta, testSkymap(), req, files, testLogger)

	anim, err := Animate(context.Background(), im, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(anim.Image) != 3 {
		t.Fatalf("got %d animation frames, want 3", len(anim.Image))
	}
	if anim.Delay[0] != 300 {
		t.Errorf("delay = %d, want 300 (3 s cadence in 1/100 s)", anim.Delay[0])
	}

	single := asilib.LoadRequest{Network: asilib.REGO, Location: "GILL", Time: start}
	im = asilib.NewImager(meta, testSkymap(), single, files, testLogger)
	if _, err := Animate(context.Background(), im, Options{}); !errors.Is(err, asilib.ErrUsage) {
		t.Errorf("got %v, want ErrUsage for a single-time imager", err)
	}
}

func TestAnimateMap(t *testing.T) {
	start := time.Date(2019, 1, 1, 6, 0, 0, 0, time.UTC)
	meta := testMeta()
	files := asilib.FileSet{
		Paths:      []string{"a"},
		StartTimes: []time.Time{start},
		Loader: func(string) ([]asilib.Frame, error) {
			return []asilib.Frame{
				testFrame(start),
				testFrame(start.Add(3 * time.Second)),
			}, nil
		},
	}
	req := asilib.LoadRequest{
		Network:  asilib.REGO,
		Location: "GILL",
		TimeRange: asilib.TimeRange{
			Start: start,
			End:   start.Add(time.Minute),
		},
	}
	im := asilib.NewImager(meta, testSkymap(), req, files, testLogger)
	track := orb.LineString{{-95.5, 55}, {-94.5, 56}}

	anim, err := AnimateMap(context.Background(), im, track, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(anim.Image) != 2 {
		t.Fatalf("got %d animation frames, want 2", len(anim.Image))
	}
	if anim.Delay[0] != 300 {
		t.Errorf("delay = %d, want 300 (3 s cadence in 1/100 s)", anim.Delay[0])
	}
	if got, want := anim.Image[0].Rect.Dx(), mapWidthPx; got != want {
		t.Errorf("map frame width = %d, want %d", got, want)
	}

	single := asilib.LoadRequest{Network: asilib.REGO, Location: "GILL", Time: start}
	im = asilib.NewImager(meta, testSkymap(), single, files, testLogger)
	if _, err := AnimateMap(context.Background(), im, track, Options{}); !errors.Is(err, asilib.ErrUsage) {
		t.Errorf("got %v, want ErrUsage for a single-time imager", err)
	}

	im = asilib.NewImager(meta, nil, req, files, testLogger)
	if _, err := AnimateMap(context.Background(), im, nil, Options{}); err == nil {
		t.Error("expected an error without a skymap")
	}
}

func TestPlotFrameMatchesFisheye(t *testing.T) {
	meta := testMeta()
	frame := testFrame(time.Date(2019, 1, 1, 6, 0, 30, 0, time.UTC))
	opts := Options{NoLabel: true}

	old, err := PlotFrame(meta, frame, nil, opts)
	if err != nil {
		t.Fatalf("PlotFrame: %v", err)
	}
	cur, err := Fisheye(meta, frame, nil, opts)
	if err != nil {
		t.Fatalf("Fisheye: %v", err)
	}
	if len(old.Pix) != len(cur.Pix) {
		t.Fatal("pixel buffers differ in size")
	}
	for i := range old.Pix {
		if old.Pix[i] != cur.Pix[i] {
			t.Fatalf("pixel buffers differ at %d", i)
		}
	}
}
