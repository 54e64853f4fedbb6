// Package skymap loads and queries per-site ASI calibration data.
//
// A skymap maps every imager pixel to look direction (azimuth, elevation)
// and to geographic coordinates (latitude, longitude) at one or more
// auroral emission altitudes. Each site has a series of skymap generations;
// the generation date marks the start of a calibration's validity.
package skymap

import (
	"fmt"
	"math"
	"time"
)

// Skymap is one calibration generation for one site. Read-only once loaded.
type Skymap struct {
	Network   string
	Location  string
	Generated time.Time // start of validity

	SiteLat   float64 // degrees
	SiteLon   float64 // degrees
	SiteAltKm float64

	// Per-pixel look direction, NaN outside the field of view.
	// Dimensions: Rows x Cols.
	Elevation [][]float64
	Azimuth   [][]float64

	// Geographic mapping at each supported emission altitude.
	// Latitude[i] and Longitude[i] hold pixel-corner grids of dimensions
	// (Rows+1) x (Cols+1) for AltitudesKm[i].
	AltitudesKm []float64
	Latitude    [][][]float64
	Longitude   [][][]float64

	// Path is the local file the skymap was loaded from.
	Path string
}

// Rows returns the imager pixel row count.
func (s *Skymap) Rows() int { return len(s.Elevation) }

// Cols returns the imager pixel column count.
func (s *Skymap) Cols() int {
	if len(s.Elevation) == 0 {
		return 0
	}
	return len(s.Elevation[0])
}

// AltitudeIndex returns the index of altKm in AltitudesKm, or an error
// naming the supported altitudes.
func (s *Skymap) AltitudeIndex(altKm float64) (int, error) {
	for i, a := range s.AltitudesKm {
		if a == altKm {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%g km is not a mapped altitude for %s/%s (have %v km)",
		altKm, s.Network, s.Location, s.AltitudesKm)
}

// AtAltitude returns the pixel-corner latitude and longitude grids for a
// mapped emission altitude.
func (s *Skymap) AtAltitude(altKm float64) (lat, lon [][]float64, err error) {
	i, err := s.AltitudeIndex(altKm)
	if err != nil {
		return nil, nil, err
	}
	return s.Latitude[i], s.Longitude[i], nil
}

// PixelCenter returns the geographic coordinates of the center of pixel
// (x, y) at the given mapped altitude. The center is the mean of the four
// surrounding corner values; NaN if any corner is unmapped.
func (s *Skymap) PixelCenter(x, y int, altKm float64) (lat, lon float64, err error) {
	latGrid, lonGrid, err := s.AtAltitude(altKm)
	if err != nil {
		return 0, 0, err
	}
	lat = (latGrid[y][x] + latGrid[y][x+1] + latGrid[y+1][x] + latGrid[y+1][x+1]) / 4
	lon = (lonGrid[y][x] + lonGrid[y][x+1] + lonGrid[y+1][x] + lonGrid[y+1][x+1]) / 4
	return lat, lon, nil
}

// NearestPixel finds the pixel whose mapped center is closest to (lat, lon)
// at the given altitude, ignoring unmapped pixels. The distance metric is
// planar in degrees, adequate for the ~1 degree pixel scale of an ASI.
func (s *Skymap) NearestPixel(lat, lon, altKm float64) (x, y int, err error) {
	if _, err := s.AltitudeIndex(altKm); err != nil {
		return 0, 0, err
	}

	best := math.Inf(1)
	x, y = -1, -1
	for py := 0; py < s.Rows(); py++ {
		for px := 0; px < s.Cols(); px++ {
			cLat, cLon, _ := s.PixelCenter(px, py, altKm)
			if math.IsNaN(cLat) || math.IsNaN(cLon) {
				continue
			}
			dLat := cLat - lat
			dLon := (cLon - lon) * math.Cos(lat*math.Pi/180)
			d := dLat*dLat + dLon*dLon
			if d < best {
				best = d
				x, y = px, py
			}
		}
	}
	if x < 0 {
		return 0, 0, fmt.Errorf("no mapped pixel near (%.2f, %.2f) for %s/%s",
			lat, lon, s.Network, s.Location)
	}
	return x, y, nil
}

// CenterColumnLatitudes returns the latitudes of the pixel centers along the
// central meridian column at altKm, one value per pixel row. Unmapped rows
// are NaN. This is the keogram latitude axis.
func (s *Skymap) CenterColumnLatitudes(altKm float64) ([]float64, error) {
	latGrid, _, err := s.AtAltitude(altKm)
	if err != nil {
		return nil, err
	}
	col := s.Cols() / 2
	lats := make([]float64, s.Rows())
	for y := range lats {
		// Corner values straddle the row; average to the center.
		lats[y] = (latGrid[y][col] + latGrid[y+1][col]) / 2
	}
	return lats, nil
}

// CenterRowLongitudes returns the longitudes of the pixel centers along the
// central row at altKm, one value per pixel column. This is the ewogram
// longitude axis.
func (s *Skymap) CenterRowLongitudes(altKm float64) ([]float64, error) {
	_, lonGrid, err := s.AtAltitude(altKm)
	if err != nil {
		return nil, err
	}
	row := s.Rows() / 2
	lons := make([]float64, s.Cols())
	for x := range lons {
		lons[x] = (lonGrid[row][x] + lonGrid[row][x+1]) / 2
	}
	return lons, nil
}
