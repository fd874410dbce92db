package analytics

import "github.com/ukydev/supply-chain-analytics/internal/models"

// Analyze derives distance, cost and emission for a single segment. It is
// the only place per-segment distance is computed.
func Analyze(segment models.RouteSegment) models.SegmentAnalytics {
	distance := DistanceKm(segment.Origin, segment.Destination)
	return models.SegmentAnalytics{
		RouteSegment: segment,
		Distance:     distance,
		Cost:         distance * segment.CostPerKm,
		Emission:     distance * segment.EmissionPerKm,
		Mode:         models.ModeTruck,
	}
}
