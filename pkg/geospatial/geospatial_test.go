package geospatial

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	plateau := orb.Point{-4.0167, 5.3252}
	cocody := orb.Point{-3.9868, 5.3476}

	distance := DistanceMeters(plateau, cocody)

	assert.InDelta(t, 4100, distance, 300)
	assert.Equal(t, 0.0, DistanceMeters(plateau, plateau))
}

func TestValidPoint(t *testing.T) {
	assert.True(t, ValidPoint(-4.0083, 5.3599))
	assert.True(t, ValidPoint(180, -90))
	assert.False(t, ValidPoint(-200, 5.36))
	assert.False(t, ValidPoint(-4.0, 91))
}
