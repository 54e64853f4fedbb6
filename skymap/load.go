package skymap

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// skymapFile is the gzipped-JSON wire format served by the calibration
// archives. Unmapped grid values carry FillValue instead of NaN, which JSON
// cannot represent.
type skymapFile struct {
	Network     string        `json:"network"`
	Location    string        `json:"location"`
	Generated   string        `json:"generated"` // YYYYMMDD
	SiteLat     float64       `json:"site_latitude"`
	SiteLon     float64       `json:"site_longitude"`
	SiteAltM    float64       `json:"site_altitude_m"`
	FillValue   float64       `json:"fill_value"`
	Elevation   [][]float64   `json:"elevation"`
	Azimuth     [][]float64   `json:"azimuth"`
	AltitudesM  []float64     `json:"map_altitudes_m"`
	Latitude    [][][]float64 `json:"map_latitude"`
	Longitude   [][][]float64 `json:"map_longitude"`
}

// Decode reads one gzipped-JSON skymap from r.
func Decode(r io.Reader) (*Skymap, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	var f skymapFile
	if err := json.NewDecoder(gz).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding skymap: %w", err)
	}
	return f.toSkymap()
}

// LoadFile reads one skymap from a local .json.gz file.
func LoadFile(path string) (*Skymap, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening skymap file: %w", err)
	}
	defer fh.Close()

	s, err := Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("skymap %s: %w", filepath.Base(path), err)
	}
	s.Path = path
	return s, nil
}

// LoadDir reads every skymap generation under dir (files matching
// *skymap*.json.gz), sorted by generation date. Generations with duplicate
// dates are rejected: validity ranges must not overlap.
func LoadDir(dir string) ([]*Skymap, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*skymap*.json.gz"))
	if err != nil {
		return nil, fmt.Errorf("listing skymap dir: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no skymap files in %s", dir)
	}

	maps := make([]*Skymap, 0, len(paths))
	seen := make(map[time.Time]string)
	for _, p := range paths {
		s, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[s.Generated]; ok {
			return nil, fmt.Errorf("skymaps %s and %s share generation date %s",
				filepath.Base(prev), filepath.Base(p), s.Generated.Format("2006-01-02"))
		}
		seen[s.Generated] = p
		maps = append(maps, s)
	}

	sort.Slice(maps, func(i, j int) bool {
		return maps[i].Generated.Before(maps[j].Generated)
	})
	return maps, nil
}

// Select picks the calibration applicable at time t: the newest generation
// dated at or before t. If t predates every generation the earliest one is
// returned with a warning, matching how the archives are used in practice.
func Select(maps []*Skymap, t time.Time, logger *slog.Logger) (*Skymap, error) {
	if len(maps) == 0 {
		return nil, fmt.Errorf("no skymaps to select from")
	}

	var best *Skymap
	for _, s := range maps {
		if s.Generated.After(t) {
			continue
		}
		if best == nil || s.Generated.After(best.Generated) {
			best = s
		}
	}
	if best == nil {
		sorted := make([]*Skymap, len(maps))
		copy(sorted, maps)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Generated.Before(sorted[j].Generated)
		})
		best = sorted[0]
		logger.Warn("requested time predates the first skymap generation, using it anyway",
			"location", best.Location,
			"requested", t.Format(time.RFC3339),
			"first_generation", best.Generated.Format("2006-01-02"),
		)
	}
	return best, nil
}

func (f *skymapFile) toSkymap() (*Skymap, error) {
	generated, err := time.Parse("20060102", f.Generated)
	if err != nil {
		return nil, fmt.Errorf("invalid generation date %q: %w", f.Generated, err)
	}

	rows := len(f.Elevation)
	if rows == 0 || len(f.Elevation[0]) == 0 {
		return nil, fmt.Errorf("empty elevation grid")
	}
	cols := len(f.Elevation[0])

	if len(f.Azimuth) != rows || len(f.Azimuth[0]) != cols {
		return nil, fmt.Errorf("azimuth grid %dx%d does not match elevation grid %dx%d",
			len(f.Azimuth), len(f.Azimuth[0]), rows, cols)
	}
	if len(f.Latitude) != len(f.AltitudesM) || len(f.Longitude) != len(f.AltitudesM) {
		return nil, fmt.Errorf("map grids cover %d altitudes, expected %d",
			len(f.Latitude), len(f.AltitudesM))
	}
	for i := range f.Latitude {
		if len(f.Latitude[i]) != rows+1 || len(f.Latitude[i][0]) != cols+1 {
			return nil, fmt.Errorf("map latitude grid %d is %dx%d, expected %dx%d (pixel corners)",
				i, len(f.Latitude[i]), len(f.Latitude[i][0]), rows+1, cols+1)
		}
		if len(f.Longitude[i]) != rows+1 || len(f.Longitude[i][0]) != cols+1 {
			return nil, fmt.Errorf("map longitude grid %d is %dx%d, expected %dx%d (pixel corners)",
				i, len(f.Longitude[i]), len(f.Longitude[i][0]), rows+1, cols+1)
		}
	}

	s := &Skymap{
		Network:   strings.ToUpper(f.Network),
		Location:  strings.ToUpper(f.Location),
		Generated: generated,
		SiteLat:   f.SiteLat,
		SiteLon:   normalizeLon(f.SiteLon),
		SiteAltKm: f.SiteAltM / 1000,
		Elevation: f.Elevation,
		Azimuth:   f.Azimuth,
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
	}

	s.AltitudesKm = make([]float64, len(f.AltitudesM))
	for i, m := range f.AltitudesM {
		s.AltitudesKm[i] = m / 1000
	}

	// Replace fill values with NaN and bring longitudes into (-180, 180].
	fill := f.FillValue
	for _, grid := range [][][]float64{s.Elevation, s.Azimuth} {
		replaceFill(grid, fill, false)
	}
	for i := range s.Latitude {
		replaceFill(s.Latitude[i], fill, false)
		replaceFill(s.Longitude[i], fill, true)
	}

	return s, nil
}

func replaceFill(grid [][]float64, fill float64, lon bool) {
	for _, row := range grid {
		for i, v := range row {
			switch {
			case v == fill:
				row[i] = math.NaN()
			case lon:
				row[i] = normalizeLon(v)
			}
		}
	}
}

// normalizeLon brings lon into (-180, 180]. Values already in range pass
// through untouched so archive longitudes keep their exact representation.
func normalizeLon(lon float64) float64 {
	if lon > -180 && lon <= 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon <= 0 {
		lon += 360
	}
	return lon - 180
}
