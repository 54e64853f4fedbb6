package asi

import (
	"context"
	"time"

	asilib "github.com/mshumko/aurora-asi-lib"
)

// LoadImage is the unified load operation. With req.Time set it returns a
// single-element slice holding the frame nearest that instant; with
// req.TimeRange set it returns the ordered frame sequence inside the
// interval. Setting both or neither fails with asilib.ErrUsage.
func (s *Service) LoadImage(ctx context.Context, req asilib.LoadRequest) ([]asilib.Frame, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	im, err := s.Imager(ctx, req)
	if err != nil {
		return nil, err
	}

	if !req.Time.IsZero() {
		frame, err := im.Image(ctx)
		if err != nil {
			return nil, err
		}
		return []asilib.Frame{frame}, nil
	}
	return im.Images(ctx)
}

// GetFrame loads the single frame nearest t.
//
// Deprecated: GetFrame is the pre-0.8 name. Use LoadImage with
// LoadRequest.Time, or Imager.Image.
func (s *Service) GetFrame(ctx context.Context, network asilib.Network, location string, t time.Time) (asilib.Frame, error) {
	frames, err := s.LoadImage(ctx, asilib.LoadRequest{
		Network:  network,
		Location: location,
		Time:     t,
	})
	if err != nil {
		return asilib.Frame{}, err
	}
	return frames[0], nil
}

// GetFrames loads the ordered frame sequence inside tr.
//
// Deprecated: GetFrames is the pre-0.8 name. Use LoadImage with
// LoadRequest.TimeRange, or Imager.Images.
func (s *Service) GetFrames(ctx context.Context, network asilib.Network, location string, tr asilib.TimeRange) ([]asilib.Frame, error) {
	return s.LoadImage(ctx, asilib.LoadRequest{
		Network:   network,
		Location:  location,
		TimeRange: tr,
	})
}
