package analytics

import (
	"math"
	"sort"

	"github.com/ukydev/supply-chain-analytics/internal/models"
)

// Rank orders the route's segments by emission, highest first, and annotates
// each with its percentile rank and share of the route total. Segments with
// equal emission keep their original relative order and share the lower
// percentile.
func Rank(a models.SupplyChainAnalytics) []models.HotspotRoute {
	n := len(a.SegmentAnalytics)
	ranked := make([]models.HotspotRoute, 0, n)
	if n == 0 {
		return ranked
	}

	ascending := make([]float64, n)
	for i, s := range a.SegmentAnalytics {
		ascending[i] = s.Emission
	}
	sort.Float64s(ascending)

	for _, s := range a.SegmentAnalytics {
		ranked = append(ranked, models.HotspotRoute{
			SegmentAnalytics: s,
			PercentileRank:   percentileRank(ascending, s.Emission),
			EmissionShare:    emissionShare(s.Emission, a.Emission),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Emission > ranked[j].Emission
	})
	return ranked
}

// percentileRank locates the first value >= emission in the ascending slice
// and expresses its index as a percentage rounded to one decimal place.
func percentileRank(ascending []float64, emission float64) float64 {
	i := sort.SearchFloat64s(ascending, emission)
	return roundTo(float64(i)/float64(len(ascending))*100, 1)
}

func emissionShare(emission, total float64) float64 {
	if total == 0 {
		return 0
	}
	return emission / total
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
