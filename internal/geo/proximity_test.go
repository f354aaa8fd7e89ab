package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// metersPerDegreeAtEquator converts a longitude offset at the equator into
// meters under the same spherical model the check uses, so boundary tests
// measure against the production formula rather than an independent one.
func lngOffsetForMeters(meters float64) float64 {
	circumference := 2 * 3.141592653589793 * 6371000.0
	return meters / circumference * 360
}

func TestProximityBoundary(t *testing.T) {
	t.Run("zero distance is admitted", func(t *testing.T) {
		assert.True(t, IsWithinProximity(0, 0, 0, 0, 500))
	})

	t.Run("exactly at the radius is admitted", func(t *testing.T) {
		// Inverting the formula overshoots the radius by a few ulps, so
		// walk the offset down until the forward computation lands at or
		// inside 500 m. The inclusive boundary must admit that point.
		lng := lngOffsetForMeters(500)
		for DistanceMeters(0, 0, 0, lng) > 500 {
			lng = math.Nextafter(lng, 0)
		}
		assert.InDelta(t, 500, DistanceMeters(0, 0, 0, lng), 0.001)
		assert.True(t, IsWithinProximity(0, 0, 0, lng, 500))
	})

	t.Run("just beyond the radius is rejected", func(t *testing.T) {
		lng := lngOffsetForMeters(500.01)
		assert.False(t, IsWithinProximity(0, 0, 0, lng, 500))
	})

	t.Run("well inside the radius is admitted", func(t *testing.T) {
		lng := lngOffsetForMeters(120)
		assert.True(t, IsWithinProximity(0, 0, 0, lng, 500))
	})
}

func TestProximitySymmetry(t *testing.T) {
	aLat, aLng := 40.7128, -74.0060
	bLat, bLng := 40.7138, -74.0050

	assert.Equal(t,
		DistanceMeters(aLat, aLng, bLat, bLng),
		DistanceMeters(bLat, bLng, aLat, aLng),
	)
	assert.Equal(t,
		IsWithinProximity(aLat, aLng, bLat, bLng, 500),
		IsWithinProximity(bLat, bLng, aLat, aLng, 500),
	)
}

func TestDistanceKnownPoints(t *testing.T) {
	// One degree of latitude is ~111.19 km under the mean-radius model.
	dist := DistanceMeters(0, 0, 1, 0)
	assert.InDelta(t, 111195, dist, 10)
}

func TestCoordinateRangeHelpers(t *testing.T) {
	assert.True(t, ValidLatitude(90))
	assert.True(t, ValidLatitude(-90))
	assert.False(t, ValidLatitude(90.0001))
	assert.True(t, ValidLongitude(180))
	assert.True(t, ValidLongitude(-180))
	assert.False(t, ValidLongitude(-180.0001))
}
