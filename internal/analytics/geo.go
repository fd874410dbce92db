// Package analytics computes distance, cost and emission figures for
// supply chain routes. Every function is pure: inputs are never mutated and
// each call returns freshly built values, so the package is safe for
// concurrent use without locking.
package analytics

import (
	"math"

	"github.com/ukydev/supply-chain-analytics/internal/models"
)

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// DistanceKm returns the great-circle distance between a and b in kilometres
// using the haversine formula. Coordinates are not range checked; NaN input
// yields NaN.
func DistanceKm(a, b models.Location) float64 {
	dLat := degreesToRadians(b.Latitude - a.Latitude)
	dLon := degreesToRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(a.Latitude))*math.Cos(degreesToRadians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
