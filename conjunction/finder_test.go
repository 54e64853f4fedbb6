package conjunction

import (
	"testing"
	"time"
)

// overheadTrack sweeps a footprint along the site's meridian from 8 degrees
// south to 8 degrees north of it, one sample per 30 s.
func overheadTrack(site Site, altKm float64) []Point {
	start := time.Date(2019, 1, 2, 10, 0, 0, 0, time.UTC)
	var track []Point
	for i := 0; i <= 32; i++ {
		track = append(track, Point{
			Time:  start.Add(time.Duration(i) * 30 * time.Second),
			Lat:   site.Lat - 8 + 0.5*float64(i),
			Lon:   site.Lon,
			AltKm: altKm,
		})
	}
	return track
}

func gillam() Site {
	return Site{Name: "GILL", Lat: 56.38, Lon: -94.64, AltKm: 0.05}
}

func TestFind(t *testing.T) {
	site := gillam()
	track := overheadTrack(site, 110)

	intervals := Find(site, track, Criteria{MinElevation: 20})
	if len(intervals) != 1 {
		t.Fatalf("got %d intervals, want 1", len(intervals))
	}
	iv := intervals[0]

	if !iv.Start.Before(iv.End) {
		t.Errorf("interval %s..%s is not ordered", iv.Start, iv.End)
	}
	// Sample 16 crosses directly over the site.
	overhead := track[16].Time
	if !iv.MaxElevationTime.Equal(overhead) {
		t.Errorf("max elevation at %s, want %s", iv.MaxElevationTime, overhead)
	}
	if iv.MaxElevation < 89 {
		t.Errorf("max elevation = %.1f, want near 90 for an overhead pass", iv.MaxElevation)
	}
	if !iv.MinDistanceTime.Equal(overhead) {
		t.Errorf("min distance at %s, want %s", iv.MinDistanceTime, overhead)
	}
	if iv.MinDistanceKm > 5 {
		t.Errorf("min distance = %.1f km, want ~0 for an overhead pass", iv.MinDistanceKm)
	}
	// The pass straddles the overhead sample roughly evenly.
	before, after := overhead.Sub(iv.Start), iv.End.Sub(overhead)
	if diff := (before - after).Abs(); diff > 30*time.Second {
		t.Errorf("lopsided interval: %s before, %s after overhead", before, after)
	}
}

func TestFindRespectsElevationThreshold(t *testing.T) {
	site := gillam()
	track := overheadTrack(site, 110)

	loose := Find(site, track, Criteria{MinElevation: 10})
	strict := Find(site, track, Criteria{MinElevation: 60})
	if len(loose) != 1 || len(strict) != 1 {
		t.Fatalf("got %d/%d intervals, want 1/1", len(loose), len(strict))
	}
	if d1, d2 := loose[0].End.Sub(loose[0].Start), strict[0].End.Sub(strict[0].Start); d2 >= d1 {
		t.Errorf("stricter threshold gave a longer interval: %s vs %s", d2, d1)
	}
}

func TestFindMaxDistance(t *testing.T) {
	site := gillam()
	track := overheadTrack(site, 110)

	// 1 degree of latitude is ~111 km, so 120 km keeps roughly one sample
	// on each side of overhead.
	intervals := Find(site, track, Criteria{MaxDistanceKm: 120})
	if len(intervals) != 1 {
		t.Fatalf("got %d intervals, want 1", len(intervals))
	}
	if d := intervals[0].End.Sub(intervals[0].Start); d > 3*time.Minute {
		t.Errorf("distance-bounded interval spans %s, want a short window", d)
	}
}

func TestFindNoConjunction(t *testing.T) {
	site := gillam()
	// A track on the other side of the planet.
	far := overheadTrack(Site{Lat: -56.38, Lon: 85.36}, 110)

	if intervals := Find(site, far, Criteria{MinElevation: 10}); len(intervals) != 0 {
		t.Fatalf("got %d intervals for a track out of view, want 0", len(intervals))
	}
}

func TestFindSplitsSeparatePasses(t *testing.T) {
	site := gillam()
	first := overheadTrack(site, 110)
	gap := first[len(first)-1].Time.Add(45 * time.Minute)
	var second []Point
	for i, p := range overheadTrack(site, 110) {
		p.Time = gap.Add(time.Duration(i) * 30 * time.Second)
		second = append(second, p)
	}

	intervals := Find(site, append(first, second...), Criteria{MinElevation: 20})
	if len(intervals) != 2 {
		t.Fatalf("got %d intervals, want 2 separate passes", len(intervals))
	}
	if !intervals[0].End.Before(intervals[1].Start) {
		t.Error("intervals overlap")
	}
}
