package geospatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// DistanceMeters returns the great-circle distance between two points.
func DistanceMeters(a, b orb.Point) float64 {
	return geo.Distance(a, b)
}

// ValidPoint reports whether lon/lat are in range.
func ValidPoint(lon, lat float64) bool {
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}
