// Package geo provides great-circle distance calculation and the coarse
// proximity buckets used to weight match desirability.
package geo

import "math"

const earthRadiusKm = 6371.0088

// Proximity is a coarse distance classification
type Proximity string

// Proximity buckets
const (
	SameCity   Proximity = "same_city"
	NearbyCity Proximity = "nearby_city"
	FarCity    Proximity = "far_city"
)

// Distance returns the great-circle distance in kilometers between two
// coordinate pairs using the haversine formula. Non-finite inputs fall back
// to a planar approximation, which is non-authoritative and only good for
// relative ordering.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	if !finite(lat1) || !finite(lon1) || !finite(lat2) || !finite(lon2) {
		return planarDistance(lat1, lon1, lat2, lon2)
	}

	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	d := earthRadiusKm * c
	if math.IsNaN(d) {
		return planarDistance(lat1, lon1, lat2, lon2)
	}
	return d
}

// planarDistance approximates distance as degrees scaled by ~111 km/degree
func planarDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat1 - lat2
	dLon := lon1 - lon2
	d := math.Sqrt(dLat*dLat+dLon*dLon) * 111
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return d
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Bucket classifies a distance into a proximity bucket: same_city within
// 10 km, nearby_city within 50 km, far_city beyond.
func Bucket(distanceKm float64) Proximity {
	switch {
	case distanceKm <= 10:
		return SameCity
	case distanceKm <= 50:
		return NearbyCity
	default:
		return FarCity
	}
}
