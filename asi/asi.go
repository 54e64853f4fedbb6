// Package asi constructs Imagers for the supported instrument networks:
// REGO, THEMIS, and TREx (RGB and NIR). Each network function finds data in
// the local data directory, downloads what is missing from the network's
// public archive, selects the applicable skymap calibration, and returns an
// asilib.Imager ready for loading, analysis, and plotting.
package asi

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	asilib "github.com/mshumko/aurora-asi-lib"
	"github.com/mshumko/aurora-asi-lib/internal/archive"
	"github.com/mshumko/aurora-asi-lib/internal/catalog"
	"github.com/mshumko/aurora-asi-lib/internal/metrics"
	"github.com/mshumko/aurora-asi-lib/internal/pgm"
	"github.com/mshumko/aurora-asi-lib/skymap"
)

// network holds one instrument array's archive layout and instrument
// parameters.
type network struct {
	id        asilib.Network
	imageURL  string // base of the stream0 minute-file tree
	skymapURL string // base of the per-site skymap tree
	cadence   time.Duration
	rows      int
	cols      int
}

var networks = map[asilib.Network]network{
	asilib.REGO: {
		id:        asilib.REGO,
		imageURL:  "https://data.phys.ucalgary.ca/sort_by_project/GO-Canada/REGO/stream0/",
		skymapURL: "https://data.phys.ucalgary.ca/sort_by_project/GO-Canada/REGO/skymap/",
		cadence:   3 * time.Second,
		rows:      512,
		cols:      512,
	},
	asilib.THEMIS: {
		id:        asilib.THEMIS,
		imageURL:  "https://data.phys.ucalgary.ca/data/themis/imager/stream0/",
		skymapURL: "https://data.phys.ucalgary.ca/data/themis/imager/skymap/",
		cadence:   3 * time.Second,
		rows:      256,
		cols:      256,
	},
	asilib.TRExRGB: {
		id:        asilib.TRExRGB,
		imageURL:  "https://data.phys.ucalgary.ca/sort_by_project/TREx/RGB/stream0/",
		skymapURL: "https://data.phys.ucalgary.ca/sort_by_project/TREx/RGB/skymaps/",
		cadence:   3 * time.Second,
		rows:      480,
		cols:      553,
	},
	asilib.TRExNIR: {
		id:        asilib.TRExNIR,
		imageURL:  "https://data.phys.ucalgary.ca/sort_by_project/TREx/NIR/stream0/",
		skymapURL: "https://data.phys.ucalgary.ca/sort_by_project/TREx/NIR/skymaps/",
		cadence:   6 * time.Second,
		rows:      256,
		cols:      256,
	},
}

// Service bundles the infrastructure shared by the network functions: the
// library configuration, the archive clients, the downloaded-file catalog,
// and the in-memory skymap cache.
type Service struct {
	cfg     *asilib.Config
	logger  *slog.Logger
	cat     *catalog.Catalog
	skymaps *skymap.Store
	clients map[asilib.Network]*archive.Client

	// overrides for tests: non-empty values replace the archive bases.
	imageURL  map[asilib.Network]string
	skymapURL map[asilib.Network]string
}

// NewService creates a Service from the given configuration. The caller
// owns Close.
func NewService(cfg *asilib.Config, logger *slog.Logger) (*Service, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	cat, err := catalog.Open(filepath.Join(cfg.DataDir, "catalog.db"))
	if err != nil {
		return nil, fmt.Errorf("opening file catalog: %w", err)
	}

	clients := make(map[asilib.Network]*archive.Client, len(networks))
	for id := range networks {
		clients[id] = archive.NewClient(string(id), cfg.HTTPTimeout, logger)
	}

	return &Service{
		cfg:       cfg,
		logger:    logger,
		cat:       cat,
		skymaps:   skymap.NewStore(),
		clients:   clients,
		imageURL:  make(map[asilib.Network]string),
		skymapURL: make(map[asilib.Network]string),
	}, nil
}

// Close releases the catalog database.
func (s *Service) Close() error {
	return s.cat.Close()
}

func (s *Service) network(id asilib.Network) (network, error) {
	n, ok := networks[id]
	if !ok {
		return network{}, fmt.Errorf("unknown network %q", id)
	}
	if u := s.imageURL[id]; u != "" {
		n.imageURL = u
	}
	if u := s.skymapURL[id]; u != "" {
		n.skymapURL = u
	}
	return n, nil
}

// Imager builds an Imager for any supported network, dispatching on
// req.Network.
func (s *Service) Imager(ctx context.Context, req asilib.LoadRequest) (*asilib.Imager, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	n, err := s.network(req.Network)
	if err != nil {
		return nil, err
	}

	sky, err := s.siteSkymap(ctx, n, req)
	if err != nil {
		return nil, err
	}

	files, err := s.findFiles(ctx, n, req)
	if err != nil {
		return nil, err
	}

	meta := asilib.Meta{
		Network:   n.id,
		Location:  req.Site(),
		Latitude:  sky.SiteLat,
		Longitude: sky.SiteLon,
		AltKm:     sky.SiteAltKm,
		Cadence:   n.cadence,
		Rows:      n.rows,
		Cols:      n.cols,
	}

	loader := func(path string) ([]asilib.Frame, error) {
		frames, err := pgm.DecodeFile(path, s.logger)
		if err != nil {
			return nil, err
		}
		metrics.RecordFramesLoaded(string(n.id), len(frames))
		if err := s.cat.SetFrames(path, len(frames)); err != nil {
			s.logger.Warn("recording frame count", "path", path, "error", err)
		}
		return frames, nil
	}
	files.Loader = loader

	return asilib.NewImager(meta, sky, req, files, s.logger), nil
}

// REGO builds an Imager for the Red-line Emission Geospace Observatory
// array.
func (s *Service) REGO(ctx context.Context, req asilib.LoadRequest) (*asilib.Imager, error) {
	req.Network = asilib.REGO
	return s.Imager(ctx, req)
}

// THEMIS builds an Imager for the THEMIS ground-based array.
func (s *Service) THEMIS(ctx context.Context, req asilib.LoadRequest) (*asilib.Imager, error) {
	req.Network = asilib.THEMIS
	return s.Imager(ctx, req)
}

// TRExRGB builds an Imager for the TREx RGB colour array.
func (s *Service) TRExRGB(ctx context.Context, req asilib.LoadRequest) (*asilib.Imager, error) {
	req.Network = asilib.TRExRGB
	return s.Imager(ctx, req)
}

// TRExNIR builds an Imager for the TREx near-infrared array.
func (s *Service) TRExNIR(ctx context.Context, req asilib.LoadRequest) (*asilib.Imager, error) {
	req.Network = asilib.TRExNIR
	return s.Imager(ctx, req)
}
