package transform

import (
	"math"
	"testing"
	"time"
)

func TestNewSite_ECEFMagnitude(t *testing.T) {
	// A site at sea level should have ECEF magnitude close to the Earth radius.
	site := NewSite(0, 0, 0) // equator, prime meridian
	mag := math.Sqrt(site.ECEFx*site.ECEFx + site.ECEFy*site.ECEFy + site.ECEFz*site.ECEFz)

	// WGS-84 equatorial radius is 6378137 m.
	if math.Abs(mag-6378137.0) > 1.0 {
		t.Errorf("equatorial site ECEF magnitude = %.1f m, want ~6378137 m", mag)
	}

	// Site at the north pole: magnitude should be ~6356752 m (polar radius).
	pole := NewSite(90, 0, 0)
	mag2 := math.Sqrt(pole.ECEFx*pole.ECEFx + pole.ECEFy*pole.ECEFy + pole.ECEFz*pole.ECEFz)
	if math.Abs(mag2-6356752.3) > 1.0 {
		t.Errorf("polar site ECEF magnitude = %.1f m, want ~6356752 m", mag2)
	}
}

func TestGeodeticRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		lat, lon  float64
		altM      float64
	}{
		{"gillam", 56.38, -94.64, 50},
		{"fort smith", 60.03, -111.93, 210},
		{"equator", 0, 0, 0},
		{"southern", -45.5, 170.2, 110000},
		{"auroral altitude", 65.0, -100.0, 110000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, z := GeodeticToECEF(tt.lat*math.Pi/180, tt.lon*math.Pi/180, tt.altM)
			p := ECEFToGeodetic(x, y, z)

			if math.Abs(p.LatDeg-tt.lat) > 1e-6 {
				t.Errorf("latitude round trip: got %.8f, want %.8f", p.LatDeg, tt.lat)
			}
			if math.Abs(p.LonDeg-tt.lon) > 1e-6 {
				t.Errorf("longitude round trip: got %.8f, want %.8f", p.LonDeg, tt.lon)
			}
			if math.Abs(p.AltM-tt.altM) > 0.01 {
				t.Errorf("altitude round trip: got %.4f m, want %.4f m", p.AltM, tt.altM)
			}
		})
	}
}

func TestECEFToLookAngles_DirectlyOverhead(t *testing.T) {
	// Site at the equator, prime meridian; target straight up at 110 km,
	// the nominal auroral emission altitude.
	site := NewSite(0, 0, 0)

	targetAlt := 110000.0
	la := ECEFToLookAngles(site, site.ECEFx+targetAlt, site.ECEFy, site.ECEFz)

	if math.Abs(la.ElevationDeg-90.0) > 0.1 {
		t.Errorf("overhead elevation = %.2f deg, want ~90", la.ElevationDeg)
	}
	if math.Abs(la.RangeKm-110.0) > 0.5 {
		t.Errorf("overhead range = %.2f km, want ~110", la.RangeKm)
	}
}

func TestECEFToLookAngles_AzimuthDirections(t *testing.T) {
	site := NewSite(0, 0, 0)

	// Target to the north (higher latitude, same longitude).
	n := NewSite(5, 0, 110000)
	laN := ECEFToLookAngles(site, n.ECEFx, n.ECEFy, n.ECEFz)
	if laN.AzimuthDeg > 30 && laN.AzimuthDeg < 330 {
		t.Errorf("northward azimuth = %.2f deg, want near 0/360", laN.AzimuthDeg)
	}

	// Target to the east.
	e := NewSite(0, 5, 110000)
	laE := ECEFToLookAngles(site, e.ECEFx, e.ECEFy, e.ECEFz)
	if math.Abs(laE.AzimuthDeg-90.0) > 30 {
		t.Errorf("eastward azimuth = %.2f deg, want near 90", laE.AzimuthDeg)
	}

	// Target to the south.
	s := NewSite(-5, 0, 110000)
	laS := ECEFToLookAngles(site, s.ECEFx, s.ECEFy, s.ECEFz)
	if math.Abs(laS.AzimuthDeg-180.0) > 30 {
		t.Errorf("southward azimuth = %.2f deg, want near 180", laS.AzimuthDeg)
	}
}

func TestGMST_KnownValue(t *testing.T) {
	// Vallado example 3-5: August 20, 1992 12:14 UT1, GMST = 152.578788 deg.
	at := time.Date(1992, 8, 20, 12, 14, 0, 0, time.UTC)
	gmstDeg := GMST(at) * 180.0 / math.Pi

	if math.Abs(gmstDeg-152.578788) > 0.01 {
		t.Errorf("GMST = %.6f deg, want 152.578788", gmstDeg)
	}
}

func TestJulianDate_J2000(t *testing.T) {
	// Noon on January 1, 2000 is JD 2451545.0.
	jd := JulianDate(time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC))
	if math.Abs(jd-2451545.0) > 1e-9 {
		t.Errorf("JD = %.9f, want 2451545.0", jd)
	}
}

func TestTEMEToECEF_PreservesMagnitude(t *testing.T) {
	// The GMST rotation is about the Z axis, so vector magnitude is preserved.
	at := time.Date(2019, 1, 2, 6, 0, 0, 0, time.UTC)
	x, y, z := TEMEToECEF(6800, 100, 500, at)

	wantMag := math.Sqrt(6800*6800+100*100+500*500) * 1000.0
	gotMag := math.Sqrt(x*x + y*y + z*z)
	if math.Abs(gotMag-wantMag) > 1e-3 {
		t.Errorf("magnitude changed: got %.3f m, want %.3f m", gotMag, wantMag)
	}
	if z != 500*1000.0 {
		t.Errorf("z changed by the rotation: got %.3f m", z)
	}
}
