// Package geo implements the proximity admission check for validations.
package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by the great-circle
// distance computation.
const earthRadiusMeters = 6371000.0

// DefaultProximityRadiusMeters is the default admission radius for
// validations, overridable through configuration.
const DefaultProximityRadiusMeters = 500.0

// DistanceMeters returns the great-circle distance between two coordinates
// using the haversine formula. Inputs must already be range-checked
// (lat in [-90,90], lng in [-180,180]); out-of-range input is a caller error.
func DistanceMeters(aLat, aLng, bLat, bLng float64) float64 {
	latA := toRadians(aLat)
	latB := toRadians(bLat)
	dLat := toRadians(bLat - aLat)
	dLng := toRadians(bLng - aLng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLng*sinLng

	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// IsWithinProximity reports whether two coordinates lie within radiusMeters
// of each other. The boundary is inclusive: a distance exactly equal to the
// radius is admissible. Symmetric in its two points.
func IsWithinProximity(aLat, aLng, bLat, bLng, radiusMeters float64) bool {
	return DistanceMeters(aLat, aLng, bLat, bLng) <= radiusMeters
}

// ValidLatitude reports whether lat is a usable latitude.
func ValidLatitude(lat float64) bool {
	return !math.IsNaN(lat) && lat >= -90 && lat <= 90
}

// ValidLongitude reports whether lng is a usable longitude.
func ValidLongitude(lng float64) bool {
	return !math.IsNaN(lng) && lng >= -180 && lng <= 180
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
