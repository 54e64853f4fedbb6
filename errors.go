package asilib

import "errors"

var (
	// ErrUsage is returned when a load request sets both a single time and a
	// time range, or neither.
	ErrUsage = errors.New("exactly one of Time or TimeRange must be set")

	// ErrNotFound is returned when the archive has no files matching a
	// requested site and time.
	ErrNotFound = errors.New("no matching archive files")

	// ErrNoData is returned when files exist but contain no frames inside
	// the requested interval.
	ErrNoData = errors.New("no image data in the requested interval")
)
