// Package keogram condenses an image sequence into a two-dimensional
// time-versus-position slice.
//
// The classic keogram takes the central meridian column of every frame and
// stacks the columns left to right, so auroral arcs drifting in latitude
// trace visible bands. An ewogram does the same with the central row
// (east-west motion), and AlongPath samples an arbitrary geographic track,
// such as a satellite footprint.
package keogram

import (
	"context"
	"fmt"
	"math"
	"time"

	asilib "github.com/mshumko/aurora-asi-lib"
)

// Keogram is a stacked slice through an image sequence. Data is indexed by
// time first: Data[i] holds the pixel samples for Times[i], one value per
// Labels entry.
type Keogram struct {
	Meta asilib.Meta

	Times []time.Time

	// Labels carries the geographic coordinate of each sample position:
	// latitude for a keogram, longitude for an ewogram, the waypoint
	// latitude for a path. Unmapped edge positions are trimmed away.
	Labels []float64

	Data [][]uint16
}

// Rows returns the number of sample positions per time step.
func (k *Keogram) Rows() int { return len(k.Labels) }

// At returns the sample for time step i at position j.
func (k *Keogram) At(i, j int) uint16 { return k.Data[i][j] }

// New builds a keogram from the Imager's central meridian column. The
// Imager must have been constructed with a time range. Labels hold the
// pixel-center latitudes at the Imager's map altitude.
func New(ctx context.Context, im *asilib.Imager) (*Keogram, error) {
	lats, err := im.Skymap.CenterColumnLatitudes(im.MapAltKm)
	if err != nil {
		return nil, err
	}
	col := im.Skymap.Cols() / 2
	return build(ctx, im, lats, func(f asilib.Frame) []uint16 {
		return f.Column(col)
	})
}

// Ewogram builds the east-west counterpart: the central row of every frame,
// labelled with pixel-center longitudes.
func Ewogram(ctx context.Context, im *asilib.Imager) (*Keogram, error) {
	lons, err := im.Skymap.CenterRowLongitudes(im.MapAltKm)
	if err != nil {
		return nil, err
	}
	row := im.Skymap.Rows() / 2
	return build(ctx, im, lons, func(f asilib.Frame) []uint16 {
		return f.Row(row)
	})
}

// Point is a geographic waypoint for AlongPath.
type Point struct {
	Lat float64
	Lon float64
}

// AlongPath samples every frame at the pixels nearest the given waypoints,
// producing a keogram along an arbitrary track. Waypoints outside the
// imager's mapped field of view are an error.
func AlongPath(ctx context.Context, im *asilib.Imager, path []Point) (*Keogram, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("a path needs at least 2 waypoints, got %d", len(path))
	}

	xs := make([]int, len(path))
	ys := make([]int, len(path))
	labels := make([]float64, len(path))
	for i, p := range path {
		x, y, err := im.Skymap.NearestPixel(p.Lat, p.Lon, im.MapAltKm)
		if err != nil {
			return nil, fmt.Errorf("waypoint %d (%.2f, %.2f): %w", i, p.Lat, p.Lon, err)
		}
		xs[i], ys[i] = x, y
		labels[i] = p.Lat
	}

	return build(ctx, im, labels, func(f asilib.Frame) []uint16 {
		samples := make([]uint16, len(xs))
		for i := range xs {
			samples[i] = f.At(xs[i], ys[i])
		}
		return samples
	})
}

func build(ctx context.Context, im *asilib.Imager, labels []float64, sample func(asilib.Frame) []uint16) (*Keogram, error) {
	tr := im.Range()
	if tr.IsZero() {
		return nil, fmt.Errorf("%s was constructed with a single time; keograms need a range: %w",
			im, asilib.ErrUsage)
	}
	if im.Skymap.Rows() != im.Meta.Rows || im.Skymap.Cols() != im.Meta.Cols {
		return nil, fmt.Errorf("%s skymap is %dx%d but the imager is %dx%d",
			im, im.Skymap.Rows(), im.Skymap.Cols(), im.Meta.Rows, im.Meta.Cols)
	}

	k := &Keogram{Meta: im.Meta, Labels: labels}
	err := im.EachFile(ctx, func(frames []asilib.Frame) error {
		for _, f := range frames {
			if !tr.Contains(f.Time) {
				continue
			}
			k.Times = append(k.Times, f.Time)
			k.Data = append(k.Data, sample(f))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(k.Times) == 0 {
		return nil, fmt.Errorf("%s during %s to %s: %w", im,
			tr.Start.Format(time.RFC3339), tr.End.Format(time.RFC3339), asilib.ErrNoData)
	}

	k.trim()
	return k, nil
}

// trim drops leading and trailing sample positions whose geographic label
// is NaN. Skymaps leave pixels below the horizon unmapped, so the edges of
// the central column usually carry no coordinates.
func (k *Keogram) trim() {
	lo := 0
	for lo < len(k.Labels) && math.IsNaN(k.Labels[lo]) {
		lo++
	}
	hi := len(k.Labels)
	for hi > lo && math.IsNaN(k.Labels[hi-1]) {
		hi--
	}
	if lo == 0 && hi == len(k.Labels) {
		return
	}

	k.Labels = k.Labels[lo:hi]
	for i, row := range k.Data {
		k.Data[i] = row[lo:hi]
	}
}
