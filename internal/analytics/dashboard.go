package analytics

import (
	"math"
	"strings"

	"github.com/ukydev/supply-chain-analytics/internal/models"
)

// DefaultOpportunityFraction is the share of segments reported by
// Opportunities when the caller does not choose one.
const DefaultOpportunityFraction = 0.1

// Summary holds the headline figures shown for a draft or saved route.
type Summary struct {
	TotalEmission   float64 `json:"totalEmission"`
	AverageEmission float64 `json:"averageEmission"`
	SegmentCount    int     `json:"segmentCount"`
}

// Summarize computes the headline figures for a list of segments. The
// average is zero when there are no segments.
func Summarize(segments []models.RouteSegment) Summary {
	var total float64
	for _, s := range segments {
		total += Analyze(s).Emission
	}
	return Summary{
		TotalEmission:   total,
		AverageEmission: averageOf(total, len(segments)),
		SegmentCount:    len(segments),
	}
}

// Endpoints returns the overall origin and destination of the route. ok is
// false for a record without segments.
func Endpoints(a models.SupplyChainAnalytics) (origin, destination models.Location, ok bool) {
	if a.IsEmpty() {
		return models.Location{}, models.Location{}, false
	}
	first := a.SegmentAnalytics[0]
	last := a.SegmentAnalytics[len(a.SegmentAnalytics)-1]
	return first.Origin, last.Destination, true
}

// Opportunities returns the highest emitting segments, ceil(n*fraction) of
// them. A fraction outside (0, 1] falls back to DefaultOpportunityFraction.
func Opportunities(a models.SupplyChainAnalytics, fraction float64) []models.HotspotRoute {
	if fraction <= 0 || fraction > 1 || math.IsNaN(fraction) {
		fraction = DefaultOpportunityFraction
	}
	ranked := Rank(a)
	n := int(math.Ceil(float64(len(ranked)) * fraction))
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

// FilterHotspots keeps the hotspots whose origin or destination name
// contains query, ignoring case and surrounding whitespace. A blank query
// keeps everything.
func FilterHotspots(hotspots []models.HotspotRoute, query string) []models.HotspotRoute {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return hotspots
	}
	filtered := make([]models.HotspotRoute, 0, len(hotspots))
	for _, h := range hotspots {
		if strings.Contains(strings.ToLower(h.Origin.Name), q) ||
			strings.Contains(strings.ToLower(h.Destination.Name), q) {
			filtered = append(filtered, h)
		}
	}
	return filtered
}
