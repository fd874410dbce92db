package models

import "time"

// TransportMode classifies how a segment is travelled.
type TransportMode string

// ModeTruck is the only mode currently assigned.
const ModeTruck TransportMode = "Truck"

// SegmentAnalytics is a RouteSegment with its derived distance (km), cost
// and emission.
type SegmentAnalytics struct {
	RouteSegment `bson:",inline"`
	Distance     float64       `bson:"distance" json:"distance"`
	Cost         float64       `bson:"cost" json:"cost"`
	Emission     float64       `bson:"emission" json:"emission"`
	Mode         TransportMode `bson:"mode" json:"mode"`
}

// SupplyChainAnalytics is the aggregate produced for one saved route.
type SupplyChainAnalytics struct {
	ID               int64              `bson:"_id" json:"id"`
	RouteID          int64              `bson:"route_id" json:"routeId"`
	Name             string             `bson:"name" json:"name"`
	SegmentAnalytics []SegmentAnalytics `bson:"segment_analytics" json:"segmentAnalytics"`
	Emission         float64            `bson:"emission" json:"emission"`
	AverageEmission  float64            `bson:"average_emission" json:"averageEmission"` // per segment
	Cost             float64            `bson:"cost" json:"cost"`
	Distance         float64            `bson:"distance" json:"distance"`
	CreatedAt        *time.Time         `bson:"created_at,omitempty" json:"createdAt"`
	TimeSavings      float64            `bson:"time_savings" json:"timeSavings"`
}

// IsEmpty reports whether a is the "no data" record returned for a route
// without segments.
func (a SupplyChainAnalytics) IsEmpty() bool {
	return len(a.SegmentAnalytics) == 0
}

// HotspotRoute is a segment annotated with its position in the route's
// emission distribution. It is computed for display and never stored.
type HotspotRoute struct {
	SegmentAnalytics
	PercentileRank float64 `json:"percentileRank"`
	EmissionShare  float64 `json:"emissionShare"`
}

// Critical reports whether the segment sits above the 90th percentile.
func (h HotspotRoute) Critical() bool {
	return h.PercentileRank > 90
}
