package asi

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	asilib "github.com/mshumko/aurora-asi-lib"
	"github.com/mshumko/aurora-asi-lib/internal/archive"
	"github.com/mshumko/aurora-asi-lib/internal/catalog"
)

// fileStampRe extracts the start minute from a stream0 filename, e.g.
// gill_20190101_0600_rego-652_full.pgm.gz.
var fileStampRe = regexp.MustCompile(`(\d{8})_(\d{4})`)

// fileStart parses the start minute out of a minute filename.
func fileStart(name string) (time.Time, error) {
	m := fileStampRe.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, fmt.Errorf("filename %q has no yyyymmdd_hhmm stamp", name)
	}
	return time.Parse("20060102_1504", m[1]+"_"+m[2])
}

// span returns the closed minute interval a request covers.
func span(req asilib.LoadRequest) (first, last time.Time) {
	if !req.Time.IsZero() {
		m := req.Time.Truncate(time.Minute)
		return m, m
	}
	first = req.TimeRange.Start.Truncate(time.Minute)
	last = req.TimeRange.End.Add(-time.Nanosecond).Truncate(time.Minute)
	return first, last
}

// findFiles locates every minute file the request needs, downloading the
// ones not already on disk. For a time range, hours with no archived data
// are tolerated (instruments go down); for a single time the file must
// exist.
func (s *Service) findFiles(ctx context.Context, n network, req asilib.LoadRequest) (asilib.FileSet, error) {
	first, last := span(req)
	site := strings.ToLower(req.Site())

	// Minute -> local path, filled from the catalog first, then the archive.
	found := make(map[time.Time]string)

	if !req.Redownload {
		entries, err := s.cat.Range(n.id, req.Site(), asilib.TimeRange{
			Start: first,
			End:   last.Add(time.Minute),
		})
		if err != nil {
			return asilib.FileSet{}, err
		}
		for _, e := range entries {
			if _, err := os.Stat(e.Path); err != nil {
				// The file went away behind the catalog's back.
				if err := s.cat.Remove(e.Path); err != nil {
					return asilib.FileSet{}, err
				}
				continue
			}
			found[e.StartTime] = e.Path
		}
	}

	missing := missingHours(first, last, found)
	for _, hour := range missing {
		if err := s.fetchHour(ctx, n, site, req, hour, first, last, found); err != nil {
			if errors.Is(err, asilib.ErrNotFound) && !req.TimeRange.IsZero() {
				s.logger.Warn("no archived data for hour, skipping",
					"network", string(n.id),
					"site", site,
					"hour", hour.Format("2006-01-02T15"),
				)
				continue
			}
			return asilib.FileSet{}, err
		}
	}

	if len(found) == 0 {
		return asilib.FileSet{}, fmt.Errorf("%s/%s has no image files between %s and %s: %w",
			n.id, req.Site(), first.Format(time.RFC3339), last.Format(time.RFC3339), asilib.ErrNotFound)
	}

	minutes := make([]time.Time, 0, len(found))
	for m := range found {
		minutes = append(minutes, m)
	}
	sort.Slice(minutes, func(i, j int) bool { return minutes[i].Before(minutes[j]) })

	fs := asilib.FileSet{
		Paths:      make([]string, len(minutes)),
		StartTimes: minutes,
	}
	for i, m := range minutes {
		fs.Paths[i] = found[m]
	}
	return fs, nil
}

// missingHours lists the UT hours that still have wanted minutes without a
// local file, oldest first.
func missingHours(first, last time.Time, found map[time.Time]string) []time.Time {
	seen := make(map[time.Time]bool)
	var hours []time.Time
	for m := first; !m.After(last); m = m.Add(time.Minute) {
		if _, ok := found[m]; ok {
			continue
		}
		h := m.Truncate(time.Hour)
		if !seen[h] {
			seen[h] = true
			hours = append(hours, h)
		}
	}
	return hours
}

// fetchHour lists one UT hour directory in the archive and downloads the
// wanted minute files into the local data tree.
func (s *Service) fetchHour(ctx context.Context, n network, site string, req asilib.LoadRequest, hour, first, last time.Time, found map[time.Time]string) error {
	client := s.clients[n.id]

	dayURL := fmt.Sprintf("%s%04d/%02d/%02d/", n.imageURL, hour.Year(), hour.Month(), hour.Day())

	// The site directory carries the device serial (gill_rego-652/), so it
	// has to come from a listing.
	siteDirs, err := client.List(ctx, dayURL, site+"_")
	if err != nil {
		return err
	}
	hourURL := dayURL + siteDirs[0] + fmt.Sprintf("ut%02d/", hour.Hour())

	pattern := fmt.Sprintf("%s_%s_%02d", site, hour.Format("20060102"), hour.Hour())
	names, err := client.List(ctx, hourURL, pattern)
	if err != nil {
		return err
	}

	localDir := filepath.Join(s.cfg.NetworkDir(n.id), "images", site, hour.Format("20060102"))

	var reqs []archive.Request
	var starts []time.Time
	for _, name := range names {
		start, err := fileStart(name)
		if err != nil {
			s.logger.Warn("skipping archive file with unparseable name", "name", name, "error", err)
			continue
		}
		if start.Before(first) || start.After(last) {
			continue
		}
		if _, ok := found[start]; ok && !req.Redownload {
			continue
		}
		reqs = append(reqs, archive.Request{
			URL:        hourURL + name,
			Dest:       filepath.Join(localDir, name),
			Redownload: req.Redownload,
		})
		starts = append(starts, start)
	}
	if len(reqs) == 0 {
		return nil
	}

	paths, err := client.DownloadAll(ctx, reqs, s.cfg.DownloadConcurrency)
	if err != nil {
		return err
	}

	for i, path := range paths {
		found[starts[i]] = path
		if err := s.cat.Upsert(catalog.Entry{
			Network:   n.id,
			Location:  req.Site(),
			StartTime: starts[i],
			Path:      path,
		}); err != nil {
			return err
		}
	}
	return nil
}
