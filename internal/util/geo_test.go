package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	t.Run("zero for identical points", func(t *testing.T) {
		assert.Zero(t, HaversineDistance(50.06, 19.94, 50.06, 19.94))
	})

	t.Run("one degree of latitude is about 111 km", func(t *testing.T) {
		d := HaversineDistance(50.0, 19.9, 51.0, 19.9)
		assert.InDelta(t, 111195.0, d, 200.0)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := HaversineDistance(50.06, 19.94, 52.23, 21.01)
		b := HaversineDistance(52.23, 21.01, 50.06, 19.94)
		assert.InDelta(t, a, b, 0.001)
	})
}

func TestInterpolatePosition(t *testing.T) {
	t.Run("clamps fractions outside the unit range", func(t *testing.T) {
		lat, lng := InterpolatePosition(50.0, 19.0, 51.0, 20.0, -0.5)
		assert.Equal(t, 50.0, lat)
		assert.Equal(t, 19.0, lng)

		lat, lng = InterpolatePosition(50.0, 19.0, 51.0, 20.0, 1.5)
		assert.Equal(t, 51.0, lat)
		assert.Equal(t, 20.0, lng)
	})

	t.Run("midpoint lies between the endpoints", func(t *testing.T) {
		lat, lng := InterpolatePosition(50.0, 19.0, 51.0, 19.0, 0.5)
		assert.InDelta(t, 50.5, lat, 0.01)
		assert.InDelta(t, 19.0, lng, 0.01)
	})

	t.Run("midpoint splits the distance evenly", func(t *testing.T) {
		midLat, midLng := InterpolatePosition(50.0, 19.0, 50.5, 19.5, 0.5)
		first := HaversineDistance(50.0, 19.0, midLat, midLng)
		second := HaversineDistance(midLat, midLng, 50.5, 19.5)
		assert.InDelta(t, first, second, 1.0)
	})
}
