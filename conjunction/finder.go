package conjunction

import (
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/mshumko/aurora-asi-lib/internal/transform"
)

// Site is an imager location the finder scans against.
type Site struct {
	Name  string
	Lat   float64 // degrees
	Lon   float64 // degrees
	AltKm float64
}

// Criteria bounds what counts as a conjunction. The zero value accepts any
// footprint sample above the horizon.
type Criteria struct {
	// MinElevation is the lowest footprint elevation, in degrees above the
	// site's horizon, that still counts.
	MinElevation float64

	// MaxDistanceKm, when positive, additionally requires the great-circle
	// distance between the site and the footprint to stay below it.
	MaxDistanceKm float64
}

// Interval is one conjunction: a contiguous run of footprint samples
// meeting the criteria.
type Interval struct {
	Start time.Time
	End   time.Time

	MaxElevation     float64
	MaxElevationTime time.Time

	MinDistanceKm   float64
	MinDistanceTime time.Time
}

// Find scans a footprint track against a site and returns the conjunction
// intervals in time order. The track must be sorted by time.
func Find(site Site, track []Point, crit Criteria) []Interval {
	s := transform.NewSite(site.Lat, site.Lon, site.AltKm*1000)
	sitePt := orb.Point{site.Lon, site.Lat}

	var intervals []Interval
	var cur *Interval

	for _, p := range track {
		x, y, z := transform.GeodeticToECEF(
			p.Lat*math.Pi/180, p.Lon*math.Pi/180, p.AltKm*1000)
		la := transform.ECEFToLookAngles(s, x, y, z)
		distKm := geo.Distance(sitePt, orb.Point{p.Lon, p.Lat}) / 1000

		hit := la.ElevationDeg >= crit.MinElevation &&
			(crit.MaxDistanceKm <= 0 || distKm <= crit.MaxDistanceKm)

		switch {
		case hit && cur == nil:
			cur = &Interval{
				Start:            p.Time,
				End:              p.Time,
				MaxElevation:     la.ElevationDeg,
				MaxElevationTime: p.Time,
				MinDistanceKm:    distKm,
				MinDistanceTime:  p.Time,
			}
		case hit:
			cur.End = p.Time
			if la.ElevationDeg > cur.MaxElevation {
				cur.MaxElevation = la.ElevationDeg
				cur.MaxElevationTime = p.Time
			}
			if distKm < cur.MinDistanceKm {
				cur.MinDistanceKm = distKm
				cur.MinDistanceTime = p.Time
			}
		case cur != nil:
			intervals = append(intervals, *cur)
			cur = nil
		}
	}
	if cur != nil {
		intervals = append(intervals, *cur)
	}
	return intervals
}
