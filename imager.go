package asilib

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mshumko/aurora-asi-lib/skymap"
)

// FileLoader parses one local minute file into ordered frames.
type FileLoader func(path string) ([]Frame, error)

// FileSet describes the local files backing an Imager, ordered by start
// time, plus the loader that parses them.
type FileSet struct {
	Paths      []string
	StartTimes []time.Time
	Loader     FileLoader
}

// Imager ties a selected image sequence to its site metadata and the
// applicable skymap calibration. Construct one with the asi package's
// network functions; the methods here load pixels on demand.
type Imager struct {
	Meta     Meta
	Skymap   *skymap.Skymap
	MapAltKm float64

	files     FileSet
	time      time.Time
	timeRange TimeRange
	logger    *slog.Logger
}

// NewImager assembles an Imager. req must already be validated; files must
// be ordered by start time.
func NewImager(meta Meta, sky *skymap.Skymap, req LoadRequest, files FileSet, logger *slog.Logger) *Imager {
	return &Imager{
		Meta:      meta,
		Skymap:    sky,
		MapAltKm:  req.Altitude(),
		files:     files,
		time:      req.Time,
		timeRange: req.TimeRange,
		logger:    logger,
	}
}

func (im *Imager) String() string {
	return im.Meta.String()
}

// Range returns the requested time range. The zero range means the Imager
// was constructed for a single time.
func (im *Imager) Range() TimeRange {
	return im.timeRange
}

// Image loads the single frame nearest the requested time. The nearest
// stamp must fall within one cadence of the request; a larger gap means the
// instrument was not taking data and is an error.
func (im *Imager) Image(ctx context.Context) (Frame, error) {
	if im.time.IsZero() {
		return Frame{}, fmt.Errorf("%s was constructed with a time range: %w", im, ErrUsage)
	}

	var nearest Frame
	var found bool
	err := im.EachFile(ctx, func(frames []Frame) error {
		i := NearestFrame(frames, im.time)
		if i < 0 {
			return nil
		}
		if !found || absDuration(frames[i].Time.Sub(im.time)) < absDuration(nearest.Time.Sub(im.time)) {
			nearest = frames[i]
			found = true
		}
		return nil
	})
	if err != nil {
		return Frame{}, err
	}
	if !found {
		return Frame{}, fmt.Errorf("%s at %s: %w", im, im.time.Format(time.RFC3339), ErrNoData)
	}

	if gap := absDuration(nearest.Time.Sub(im.time)); gap > im.Meta.Cadence {
		return Frame{}, fmt.Errorf("no %s frame within %s of %s; closest stamp is %s",
			im, im.Meta.Cadence, im.time.Format(time.RFC3339), nearest.Time.Format(time.RFC3339))
	}
	return nearest, nil
}

// Images loads every frame inside the requested time range, ordered by
// timestamp.
func (im *Imager) Images(ctx context.Context) ([]Frame, error) {
	if im.timeRange.IsZero() {
		return nil, fmt.Errorf("%s was constructed with a single time: %w", im, ErrUsage)
	}

	var all []Frame
	err := im.EachFile(ctx, func(frames []Frame) error {
		for _, f := range frames {
			if im.timeRange.Contains(f.Time) {
				all = append(all, f)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%s during %s to %s: %w", im,
			im.timeRange.Start.Format(time.RFC3339), im.timeRange.End.Format(time.RFC3339), ErrNoData)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Time.Before(all[j].Time) })
	return all, nil
}

// EachFile loads the backing files one at a time, in start-time order, and
// passes each file's frames to fn. This is the generator form: a day of
// 512x512 images does not fit comfortably in memory, and keograms only need
// one column per frame.
func (im *Imager) EachFile(ctx context.Context, fn func(frames []Frame) error) error {
	if len(im.files.Paths) == 0 {
		return fmt.Errorf("%s: %w", im, ErrNoData)
	}
	for _, path := range im.files.Paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		frames, err := im.files.Loader(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		if err := fn(frames); err != nil {
			return err
		}
	}
	return nil
}

// Timestamps returns the capture times of every frame the request covers,
// without retaining pixel data.
func (im *Imager) Timestamps(ctx context.Context) ([]time.Time, error) {
	var times []time.Time
	err := im.EachFile(ctx, func(frames []Frame) error {
		for _, f := range frames {
			if im.timeRange.IsZero() || im.timeRange.Contains(f.Time) {
				times = append(times, f.Time)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return times, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
