// Package geo provides the Haversine distance and bounding-box geometry
// the metadata filter's GPS-radius predicate and the visual
// recommender's same-location matching need. There is deliberately no
// spatial index here: candidate sets are always already bounded by a
// time or name filter before a GPS check runs, so pure distance math is
// all that's needed.
package geo

import "math"

// EarthRadiusKM is the Earth's radius in kilometers.
const EarthRadiusKM = 6371.0

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// HaversineKM returns the great-circle distance between a and b in
// kilometers.
func HaversineKM(a, b Coordinate) float64 {
	lat1Rad := a.Lat * math.Pi / 180
	lat2Rad := b.Lat * math.Pi / 180
	deltaLat := (b.Lat - a.Lat) * math.Pi / 180
	deltaLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKM * c
}

// WithinRadiusKM reports whether point lies within radiusKM of center.
func WithinRadiusKM(center, point Coordinate, radiusKM float64) bool {
	return HaversineKM(center, point) <= radiusKM
}

// BoundingBox is a rectangular lat/lon region.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// BoxAroundRadiusKM derives a bounding box around center spanning
// radiusKM in every direction, using the fixed approximation that 1
// degree of latitude is ~111km and a degree of longitude shrinks by
// cos(lat).
func BoxAroundRadiusKM(center Coordinate, radiusKM float64) BoundingBox {
	dLat := radiusKM / 111.0

	cosLat := math.Cos(center.Lat * math.Pi / 180)
	if cosLat < 1e-6 {
		cosLat = 1e-6 // near the poles a degree of longitude collapses to ~0km
	}
	dLon := radiusKM / (111.0 * cosLat)

	return BoundingBox{
		MinLat: center.Lat - dLat,
		MaxLat: center.Lat + dLat,
		MinLon: center.Lon - dLon,
		MaxLon: center.Lon + dLon,
	}
}

// Contains reports whether point falls inside the box.
func (b BoundingBox) Contains(point Coordinate) bool {
	return point.Lat >= b.MinLat && point.Lat <= b.MaxLat &&
		point.Lon >= b.MinLon && point.Lon <= b.MaxLon
}
