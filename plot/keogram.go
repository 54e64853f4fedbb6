package plot

import (
	"fmt"
	"image"

	"github.com/mshumko/aurora-asi-lib/internal/metrics"
	"github.com/mshumko/aurora-asi-lib/keogram"
)

// Keogram renders a keogram with time on the horizontal axis, one column
// per time step. The vertical axis is oriented so the larger geographic
// label sits at the top.
func Keogram(k *keogram.Keogram, opts Options) (*image.RGBA, error) {
	if len(k.Times) == 0 || k.Rows() == 0 {
		return nil, fmt.Errorf("empty keogram")
	}

	cmap := opts.colormap(k.Meta.Network)
	norm := opts.norm()

	var bounds Bounds
	if opts.Bounds != nil {
		bounds = *opts.Bounds
	} else {
		all := make([]uint16, 0, len(k.Data)*k.Rows())
		for _, col := range k.Data {
			all = append(all, col...)
		}
		bounds = AutoBounds(all)
	}

	flip := k.Labels[0] < k.Labels[len(k.Labels)-1]

	img := image.NewRGBA(image.Rect(0, 0, len(k.Times), k.Rows()))
	for i := range k.Times {
		for j := 0; j < k.Rows(); j++ {
			v, err := normalize(float64(k.At(i, j)), bounds, norm)
			if err != nil {
				return nil, err
			}
			y := j
			if flip {
				y = k.Rows() - 1 - j
			}
			img.SetRGBA(i, y, cmap(v))
		}
	}

	if !opts.NoLabel {
		label := fmt.Sprintf("%s %s to %s", k.Meta,
			k.Times[0].UTC().Format("2006-01-02 15:04"),
			k.Times[len(k.Times)-1].UTC().Format("15:04"))
		drawLabel(img, label, 4, 13)
	}

	metrics.RecordFramesRendered("keogram", len(k.Times))
	return img, nil
}
