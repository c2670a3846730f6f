package geo

import "math"

// earthRadiusKm is the mean Earth radius on the spherical model.
const earthRadiusKm = 6371.0

// Coordinate is a resolved WGS84 point. Callers are responsible for
// validity; this package performs no range checks.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceKm returns the haversine great-circle distance between two
// coordinates in kilometres. Symmetric, and zero (within floating
// tolerance) when both points coincide.
func DistanceKm(a, b Coordinate) float64 {
	latA := radians(a.Lat)
	latB := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLng*sinLng
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
