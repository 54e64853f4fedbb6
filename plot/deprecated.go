package plot

import (
	"image"

	asilib "github.com/mshumko/aurora-asi-lib"
	"github.com/mshumko/aurora-asi-lib/skymap"
)

// PlotFrame renders one frame in instrument coordinates.
//
// Deprecated: Use Fisheye, which PlotFrame calls unchanged.
func PlotFrame(meta asilib.Meta, frame asilib.Frame, sky *skymap.Skymap, opts Options) (*image.RGBA, error) {
	return Fisheye(meta, frame, sky, opts)
}
