package asilib

import (
	"fmt"
	"sort"
	"time"
)

// Frame is a single all-sky image: a capture timestamp and a 16-bit pixel
// array oriented with north up and east to the left. Frames are immutable
// once loaded.
type Frame struct {
	Time   time.Time
	Width  int
	Height int
	Pix    []uint16 // row-major, length Width*Height
}

// At returns the pixel value at column x, row y.
func (f Frame) At(x, y int) uint16 {
	return f.Pix[y*f.Width+x]
}

// Column returns a copy of pixel column x, one value per row.
func (f Frame) Column(x int) []uint16 {
	col := make([]uint16, f.Height)
	for y := 0; y < f.Height; y++ {
		col[y] = f.Pix[y*f.Width+x]
	}
	return col
}

// Row returns a copy of pixel row y.
func (f Frame) Row(y int) []uint16 {
	row := make([]uint16, f.Width)
	copy(row, f.Pix[y*f.Width:(y+1)*f.Width])
	return row
}

// TimeRange brackets an image data interval. Start is inclusive, End exclusive.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the range is unset.
func (tr TimeRange) IsZero() bool {
	return tr.Start.IsZero() && tr.End.IsZero()
}

// Validate checks that the range is well formed.
func (tr TimeRange) Validate() error {
	if tr.Start.IsZero() || tr.End.IsZero() {
		return fmt.Errorf("time range bounds must both be set")
	}
	if !tr.End.After(tr.Start) {
		return fmt.Errorf("time range end %s must be after start %s",
			tr.End.Format(time.RFC3339), tr.Start.Format(time.RFC3339))
	}
	return nil
}

// Contains reports whether t falls inside the range.
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// Meta describes an imager: its network, site, geodetic location, cadence,
// and pixel resolution.
type Meta struct {
	Network   Network
	Location  string  // four-letter site code, upper case
	Latitude  float64 // degrees
	Longitude float64 // degrees
	AltKm     float64 // site altitude above the ellipsoid
	Cadence   time.Duration
	Rows      int
	Cols      int
}

func (m Meta) String() string {
	return fmt.Sprintf("%s/%s", m.Network, m.Location)
}

// NearestFrame returns the index of the frame whose timestamp is closest to t.
// Frames must be ordered by time. Returns -1 for an empty slice.
func NearestFrame(frames []Frame, t time.Time) int {
	if len(frames) == 0 {
		return -1
	}
	i := sort.Search(len(frames), func(i int) bool {
		return !frames[i].Time.Before(t)
	})
	if i == 0 {
		return 0
	}
	if i == len(frames) {
		return len(frames) - 1
	}
	if frames[i].Time.Sub(t) < t.Sub(frames[i-1].Time) {
		return i
	}
	return i - 1
}
