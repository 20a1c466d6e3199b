package geo

import (
	"math"
)

import (
	"github.com/golang/geo/s2"
	kml "github.com/twpayne/go-kml"
	"github.com/twpayne/go-kml/sphere"
)

// Mean earth radius (m), the same sphere as sphere.FAI.
const EarthRadius = 6371000.0

// Distance returns the great circle distance between two positions in metres.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadius
}

// Bearing returns the initial great circle bearing from the first position
// to the second, in degrees [0,360).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	b := sphere.FAI.InitialBearingTo(kml.Coordinate{Lon: lon1, Lat: lat1},
		kml.Coordinate{Lon: lon2, Lat: lat2})
	return NormaliseHeading(b)
}

// Offset returns the position dist metres from lat, lon along brg.
func Offset(lat, lon, dist, brg float64) (float64, float64) {
	c := sphere.FAI.Offset(kml.Coordinate{Lon: lon, Lat: lat}, dist, brg)
	return c.Lat, c.Lon
}

// NormaliseHeading maps any angle into [0,360).
func NormaliseHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h -= 360
	}
	return h
}

// SignedHeading maps any angle into (-180,180], the range DJI uses for
// aircraft heading and gimbal yaw.
func SignedHeading(h float64) float64 {
	h = NormaliseHeading(h)
	if h > 180 {
		h -= 360
	}
	return h
}

func Lerp(a, b, f float64) float64 {
	return a + (b-a)*f
}

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
