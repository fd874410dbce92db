package models

import "time"

// RouteSegment is one leg of a shipment.
type RouteSegment struct {
	Origin        Location `bson:"origin" json:"origin"`
	Destination   Location `bson:"destination" json:"destination"`
	CostPerKm     float64  `bson:"cost_per_km" json:"costPerKm" validate:"gte=0"`
	EmissionPerKm float64  `bson:"emission_per_km" json:"emissionPerKm" validate:"gte=0"` // CO2e per km
}

// SupplyChainRoute is an ordered list of segments. The first segment's origin
// is the route origin and the last segment's destination is the route
// destination. ID is zero until the route has been saved.
type SupplyChainRoute struct {
	ID            int64          `bson:"_id" json:"id"`
	Name          string         `bson:"name" json:"name"`
	RouteSegments []RouteSegment `bson:"route_segments" json:"routeSegments" validate:"required,min=1,dive"`
	CreatedAt     time.Time      `bson:"created_at" json:"createdAt"`
}
