package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	t.Run("Mumbai to Delhi", func(t *testing.T) {
		// Known reference distance is roughly 1150 km
		d := Distance(19.0760, 72.8777, 28.7041, 77.1025)
		assert.InDelta(t, 1160, d, 30)
	})

	t.Run("Zero distance for identical points", func(t *testing.T) {
		d := Distance(19.0760, 72.8777, 19.0760, 72.8777)
		assert.InDelta(t, 0, d, 1e-9)
	})

	t.Run("Symmetric", func(t *testing.T) {
		a := Distance(19.0760, 72.8777, 13.0827, 80.2707)
		b := Distance(13.0827, 80.2707, 19.0760, 72.8777)
		assert.InDelta(t, a, b, 1e-9)
	})

	t.Run("Short hop stays inside same city bucket", func(t *testing.T) {
		// Two points ~5 km apart in Mumbai
		d := Distance(19.0760, 72.8777, 19.1136, 72.8697)
		assert.Less(t, d, 10.0)
	})
}

func TestDistanceFallback(t *testing.T) {
	t.Run("NaN input uses planar approximation", func(t *testing.T) {
		d := Distance(math.NaN(), 72.8777, 19.0760, 72.8777)
		assert.False(t, math.IsNaN(d))
		assert.GreaterOrEqual(t, d, 0.0)
	})

	t.Run("Infinite input does not propagate", func(t *testing.T) {
		d := Distance(math.Inf(1), 0, 0, 0)
		assert.False(t, math.IsNaN(d))
		assert.False(t, math.IsInf(d, 0))
	})

	t.Run("Planar approximation preserves ordering", func(t *testing.T) {
		near := planarDistance(0, 0, 0.1, 0.1)
		far := planarDistance(0, 0, 1.0, 1.0)
		assert.Less(t, near, far)
	})
}

func TestBucket(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		expected Proximity
	}{
		{"Zero distance", 0, SameCity},
		{"Boundary of same city", 10, SameCity},
		{"Just past same city", 10.01, NearbyCity},
		{"Boundary of nearby city", 50, NearbyCity},
		{"Just past nearby city", 50.01, FarCity},
		{"Far", 500, FarCity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Bucket(tt.distance))
		})
	}
}
