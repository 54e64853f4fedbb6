package asi

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	asilib "github.com/mshumko/aurora-asi-lib"
	"github.com/mshumko/aurora-asi-lib/internal/archive"
	"github.com/mshumko/aurora-asi-lib/skymap"
)

// siteSkymap returns the calibration applicable to the request: every
// generation for the site is fetched once (memory-cached across calls),
// then the newest generation at or before the request time wins.
func (s *Service) siteSkymap(ctx context.Context, n network, req asilib.LoadRequest) (*skymap.Skymap, error) {
	if req.Redownload {
		s.skymaps.Invalidate(string(n.id), req.Site())
	}

	maps, err := s.skymaps.GetOrLoad(string(n.id), req.Site(), func() ([]*skymap.Skymap, error) {
		dir, err := s.downloadSkymaps(ctx, n, req)
		if err != nil {
			return nil, err
		}
		return skymap.LoadDir(dir)
	})
	if err != nil {
		return nil, err
	}

	at := req.Time
	if at.IsZero() {
		at = req.TimeRange.Start
	}

	sky, err := skymap.Select(maps, at, s.logger)
	if err != nil {
		return nil, err
	}
	if _, err := sky.AltitudeIndex(req.Altitude()); err != nil {
		return nil, err
	}
	return sky, nil
}

// downloadSkymaps mirrors every skymap generation for a site into the local
// data tree and returns the local directory.
func (s *Service) downloadSkymaps(ctx context.Context, n network, req asilib.LoadRequest) (string, error) {
	client := s.clients[n.id]
	site := strings.ToLower(req.Site())

	localDir := filepath.Join(s.cfg.NetworkDir(n.id), "skymaps", site)
	siteURL := n.skymapURL + site + "/"

	// One dated subdirectory per generation (gill_20141102/, ...).
	gens, err := client.List(ctx, siteURL, site+"_")
	if err != nil {
		return "", fmt.Errorf("listing skymap generations for %s/%s: %w", n.id, req.Site(), err)
	}

	var reqs []archive.Request
	for _, gen := range gens {
		genURL := siteURL + gen
		names, err := client.List(ctx, genURL, "skymap")
		if err != nil {
			s.logger.Warn("skymap generation directory has no skymap file",
				"network", string(n.id), "site", site, "generation", gen)
			continue
		}
		for _, name := range names {
			reqs = append(reqs, archive.Request{
				URL:        genURL + name,
				Dest:       filepath.Join(localDir, name),
				Redownload: req.Redownload,
			})
		}
	}
	if len(reqs) == 0 {
		return "", fmt.Errorf("no skymap files for %s/%s: %w", n.id, req.Site(), asilib.ErrNotFound)
	}

	// Calibration files are small; a short deadline keeps a dead archive
	// from hanging an otherwise-local load.
	dlCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if _, err := client.DownloadAll(dlCtx, reqs, s.cfg.DownloadConcurrency); err != nil {
		return "", fmt.Errorf("downloading skymaps for %s/%s: %w", n.id, req.Site(), err)
	}
	return localDir, nil
}
