// Package geo holds the distance metrics used by hazard and ride queries.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

const EarthRadiusKm = 6371.0088

// Metric measures the distance between two WGS84 points in "kilometres".
type Metric func(lat1, lng1, lat2, lng2 float64) float64

// PlanarDistanceKm is the euclidean distance in degree space, treating one
// degree as one kilometre. It is an approximation kept for compatibility
// with existing clients; it is not geodesically correct.
func PlanarDistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	return math.Sqrt(math.Pow(lat1-lat2, 2) + math.Pow(lng1-lng2, 2))
}

// HaversineKm is the great-circle distance between two points.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lng1)
	b := s2.LatLngFromDegrees(lat2, lng2)
	return a.Distance(b).Radians() * EarthRadiusKm
}

func ValidLat(lat float64) bool {
	return !math.IsNaN(lat) && lat >= -90 && lat <= 90
}

func ValidLng(lng float64) bool {
	return !math.IsNaN(lng) && lng >= -180 && lng <= 180
}

// Box is an inclusive axis-aligned rectangle in degree space.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns the rectangle spanned by two corner points.
func BoundingBox(lat1, lng1, lat2, lng2 float64) Box {
	return Box{
		MinLat: math.Min(lat1, lat2),
		MaxLat: math.Max(lat1, lat2),
		MinLng: math.Min(lng1, lng2),
		MaxLng: math.Max(lng1, lng2),
	}
}

func (b Box) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// AroundKm returns a box that contains every point within radiusKm
// great-circle kilometres of (lat, lng). Longitude is widened to the full
// range near the poles and when the radius crosses the antimeridian.
func AroundKm(lat, lng, radiusKm float64) Box {
	d := radiusKm / EarthRadiusKm
	dLat := d * 180 / math.Pi
	box := Box{
		MinLat: math.Max(lat-dLat, -90),
		MaxLat: math.Min(lat+dLat, 90),
		MinLng: -180,
		MaxLng: 180,
	}
	cos := math.Cos(lat * math.Pi / 180)
	if box.MaxLat < 90 && box.MinLat > -90 && math.Sin(d) < cos {
		dLng := math.Asin(math.Sin(d)/cos) * 180 / math.Pi
		if lng-dLng >= -180 && lng+dLng <= 180 {
			box.MinLng = lng - dLng
			box.MaxLng = lng + dLng
		}
	}
	return box
}
