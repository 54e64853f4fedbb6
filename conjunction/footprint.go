// Package conjunction finds intervals when a satellite passes through an
// all-sky imager's field of view.
//
// Two routes are available: the Client queries a hosted conjunction search
// service over HTTP, and the local path propagates a two-line element set
// with SGP4, maps the orbit to an auroral-emission-altitude footprint, and
// scans the footprint against a site's horizon geometry.
package conjunction

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/mshumko/aurora-asi-lib/internal/transform"
)

// Point is one sample of a satellite footprint: the geodetic position the
// satellite maps to at the auroral emission altitude.
type Point struct {
	Time  time.Time
	Lat   float64 // degrees
	Lon   float64 // degrees
	AltKm float64
}

// Propagator wraps one satellite's SGP4 model.
//
// go-satellite calls log.Fatal on malformed TLE input, so the lines are
// pre-validated. Propagation failures surface as NaN or absurd magnitudes
// rather than errors, so every step is sanity checked.
type Propagator struct {
	sat  satellite.Satellite
	name string
}

// NewPropagator initializes an SGP4 model from TLE lines. name identifies
// the satellite in errors.
func NewPropagator(name, line1, line2 string) (*Propagator, error) {
	if err := validateTLE(line1, line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for %s: %w", name, err)
	}
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for %s: code=%d %s", name, sat.Error, sat.ErrorStr)
	}
	return &Propagator{sat: sat, name: name}, nil
}

func validateTLE(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)
	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got %q", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got %q", line2[0])
	}
	return nil
}

// Position returns the satellite's geodetic position at t.
func (p *Propagator) Position(t time.Time) (transform.GeodeticPoint, error) {
	t = t.UTC()
	pos, _ := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(),
		t.Hour(), t.Minute(), t.Second())

	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return transform.GeodeticPoint{}, fmt.Errorf("sgp4 propagation failed for %s: output is NaN/Inf", p.name)
	}
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < 6200 || mag > 50000 {
		return transform.GeodeticPoint{}, fmt.Errorf("sgp4 propagation failed for %s: unreasonable position magnitude %.1f km", p.name, mag)
	}

	x, y, z := transform.TEMEToECEF(pos.X, pos.Y, pos.Z, t)
	return transform.ECEFToGeodetic(x, y, z), nil
}

// Footprint samples the satellite's footprint from start to end at the
// given step, mapped radially down to altKm. Field-line tracing is out of
// scope; the radial map is adequate for low-Earth-orbit conjunctions.
func (p *Propagator) Footprint(start, end time.Time, step time.Duration, altKm float64) ([]Point, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("footprint end %s must be after start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if step <= 0 {
		return nil, fmt.Errorf("footprint step must be positive, got %s", step)
	}

	var points []Point
	for t := start; !t.After(end); t = t.Add(step) {
		geo, err := p.Position(t)
		if err != nil {
			return nil, err
		}
		points = append(points, Point{
			Time:  t,
			Lat:   geo.LatDeg,
			Lon:   geo.LonDeg,
			AltKm: altKm,
		})
	}
	return points, nil
}
