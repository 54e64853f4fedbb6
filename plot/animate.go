package plot

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"os"

	"github.com/paulmach/orb"

	asilib "github.com/mshumko/aurora-asi-lib"
	"github.com/mshumko/aurora-asi-lib/internal/metrics"
)

// Animate renders every frame in the Imager's time range into an animated
// GIF, streaming one file at a time. The color bounds are fixed from the
// first frame unless opts.Bounds is set, so the brightness scale stays
// steady through the animation.
func Animate(ctx context.Context, im *asilib.Imager, opts Options) (*gif.GIF, error) {
	if im.Range().IsZero() {
		return nil, fmt.Errorf("%s was constructed with a single time; animations need a range: %w",
			im, asilib.ErrUsage)
	}

	cmap := opts.colormap(im.Meta.Network)
	norm := opts.norm()
	pal := buildPalette(cmap)

	delay := frameDelay(im.Meta)
	anim := &gif.GIF{}
	var bounds *Bounds
	tr := im.Range()

	err := im.EachFile(ctx, func(frames []asilib.Frame) error {
		for _, f := range frames {
			if !tr.Contains(f.Time) {
				continue
			}
			if bounds == nil {
				b := opts.bounds(f.Pix)
				bounds = &b
			}

			img := image.NewPaletted(image.Rect(0, 0, f.Width, f.Height), pal)
			for y := 0; y < f.Height; y++ {
				for x := 0; x < f.Width; x++ {
					v, err := normalize(float64(f.At(x, y)), *bounds, norm)
					if err != nil {
						return err
					}
					img.SetColorIndex(x, y, uint8(v*255))
				}
			}
			if !opts.NoLabel {
				stamp := f.Time.UTC().Format("2006-01-02 15:04:05")
				drawPalettedLabel(img, fmt.Sprintf("%s %s", im.Meta, stamp), 4, f.Height-6)
			}

			anim.Image = append(anim.Image, img)
			anim.Delay = append(anim.Delay, delay)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(anim.Image) == 0 {
		return nil, fmt.Errorf("%s: %w", im, asilib.ErrNoData)
	}

	metrics.RecordFramesRendered("fisheye", len(anim.Image))
	return anim, nil
}

// AnimateMap renders every frame in the Imager's time range as a geographic
// map and assembles the maps into an animated GIF. track, when non-empty, is
// drawn over each map, typically a satellite footprint. As with Animate, the
// color bounds are fixed from the first frame unless opts.Bounds is set.
func AnimateMap(ctx context.Context, im *asilib.Imager, track orb.LineString, opts Options) (*gif.GIF, error) {
	if im.Range().IsZero() {
		return nil, fmt.Errorf("%s was constructed with a single time; animations need a range: %w",
			im, asilib.ErrUsage)
	}
	if im.Skymap == nil {
		return nil, fmt.Errorf("%s has no skymap; maps need one", im)
	}

	delay := frameDelay(im.Meta)
	anim := &gif.GIF{}
	o := opts
	tr := im.Range()

	err := im.EachFile(ctx, func(frames []asilib.Frame) error {
		for _, f := range frames {
			if !tr.Contains(f.Time) {
				continue
			}
			if o.Bounds == nil {
				b := opts.bounds(f.Pix)
				o.Bounds = &b
			}

			rgba, err := Map(im.Meta, f, im.Skymap, im.MapAltKm, track, o)
			if err != nil {
				return err
			}
			// Maps mix colormap, track, and marker colors, so they go
			// through a general palette instead of the colormap one.
			img := image.NewPaletted(rgba.Rect, palette.Plan9)
			draw.FloydSteinberg.Draw(img, rgba.Rect, rgba, image.Point{})

			anim.Image = append(anim.Image, img)
			anim.Delay = append(anim.Delay, delay)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(anim.Image) == 0 {
		return nil, fmt.Errorf("%s: %w", im, asilib.ErrNoData)
	}

	return anim, nil
}

// frameDelay converts the imager cadence into GIF hundredths of a second.
func frameDelay(meta asilib.Meta) int {
	delay := int(meta.Cadence.Seconds() * 100)
	if delay < 2 {
		delay = 2
	}
	return delay
}

// WriteGIF encodes an animation to path.
func WriteGIF(path string, anim *gif.GIF) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := gif.EncodeAll(f, anim); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

// buildPalette samples the colormap into the 256 GIF palette entries, so
// normalized intensity doubles as the palette index.
func buildPalette(cmap Colormap) color.Palette {
	pal := make(color.Palette, 256)
	for i := range pal {
		pal[i] = cmap(float64(i) / 255)
	}
	return pal
}

func drawPalettedLabel(img *image.Paletted, text string, x, y int) {
	// Index 255 is the colormap's brightest entry.
	rgba := image.NewRGBA(img.Rect)
	drawLabel(rgba, text, x, y)
	for py := img.Rect.Min.Y; py < img.Rect.Max.Y; py++ {
		for px := img.Rect.Min.X; px < img.Rect.Max.X; px++ {
			if _, _, _, a := rgba.At(px, py).RGBA(); a > 0 {
				img.SetColorIndex(px, py, 255)
			}
		}
	}
}
