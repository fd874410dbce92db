package report

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/ukydev/supply-chain-analytics/internal/models"
)

// Marker roles set on point features.
const (
	RoleOrigin      = "Origin"
	RoleDestination = "Destination"
)

func point(l models.Location) orb.Point {
	return orb.Point{l.Longitude, l.Latitude}
}

// Map renders the route as a GeoJSON feature collection: an origin and a
// destination marker plus a straight line for every segment. The collection
// carries a bounding box when it has any features.
func Map(a models.SupplyChainAnalytics) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if a.IsEmpty() {
		return fc
	}

	var points orb.MultiPoint
	for i, s := range a.SegmentAnalytics {
		origin, destination := point(s.Origin), point(s.Destination)
		points = append(points, origin, destination)

		fc.Append(marker(origin, s.Origin.Name, RoleOrigin, i))
		fc.Append(marker(destination, s.Destination.Name, RoleDestination, i))

		line := geojson.NewFeature(orb.LineString{origin, destination})
		line.Properties["segment"] = i + 1
		line.Properties["mode"] = string(s.Mode)
		line.Properties["distance"] = s.Distance
		line.Properties["cost"] = s.Cost
		line.Properties["emission"] = s.Emission
		fc.Append(line)
	}

	fc.BBox = geojson.NewBBox(points.Bound())
	return fc
}

func marker(p orb.Point, name, role string, index int) *geojson.Feature {
	f := geojson.NewFeature(p)
	f.Properties["name"] = name
	f.Properties["role"] = role
	f.Properties["segment"] = index + 1
	return f
}
