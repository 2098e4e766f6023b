package util

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

const earthRadiusMeters = 6371000.0

// HaversineDistance returns the great-circle distance in meters between
// two coordinates.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	point1 := s2.PointFromLatLng(s2.LatLngFromDegrees(lat1, lng1))
	point2 := s2.PointFromLatLng(s2.LatLngFromDegrees(lat2, lng2))

	angle := s1.Angle(s2.ChordAngleBetweenPoints(point1, point2).Angle())

	return angle.Radians() * earthRadiusMeters
}

// InterpolatePosition returns the point fraction of the way along the
// great-circle path between two coordinates. Fraction is clamped to [0, 1].
func InterpolatePosition(startLat, startLng, endLat, endLng, fraction float64) (float64, float64) {
	if fraction <= 0 {
		return startLat, startLng
	}
	if fraction >= 1 {
		return endLat, endLng
	}

	startPoint := s2.PointFromLatLng(s2.LatLngFromDegrees(startLat, startLng))
	endPoint := s2.PointFromLatLng(s2.LatLngFromDegrees(endLat, endLng))

	newPoint := s2.Interpolate(fraction, startPoint, endPoint)
	newLatLng := s2.LatLngFromPoint(newPoint)

	return newLatLng.Lat.Degrees(), newLatLng.Lng.Degrees()
}
