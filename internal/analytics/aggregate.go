package analytics

import (
	"time"

	"github.com/ukydev/supply-chain-analytics/internal/models"
)

// Aggregate analyzes every segment of a route and totals the results,
// stamping CreatedAt with the current time.
func Aggregate(segments []models.RouteSegment) models.SupplyChainAnalytics {
	return AggregateAt(segments, time.Now())
}

// AggregateAt is Aggregate with an explicit creation time.
//
// An empty route yields a zeroed record with no segment analytics and a nil
// CreatedAt. Callers should check IsEmpty before presenting it. ID and Name
// are left for the caller to assign.
func AggregateAt(segments []models.RouteSegment, at time.Time) models.SupplyChainAnalytics {
	if len(segments) == 0 {
		return models.SupplyChainAnalytics{SegmentAnalytics: []models.SegmentAnalytics{}}
	}

	result := models.SupplyChainAnalytics{
		SegmentAnalytics: make([]models.SegmentAnalytics, len(segments)),
	}
	for i, segment := range segments {
		result.SegmentAnalytics[i] = Analyze(segment)
	}

	// Totals are summed from the rows above; distance is never recomputed.
	for _, s := range result.SegmentAnalytics {
		result.Emission += s.Emission
		result.Distance += s.Distance
		result.Cost += s.Cost
	}
	result.AverageEmission = averageOf(result.Emission, len(result.SegmentAnalytics))

	createdAt := at
	result.CreatedAt = &createdAt
	return result
}

func averageOf(total float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return total / float64(count)
}
