// Package service ties the analytics engine to persistence and the dashboard
// state. Handlers talk to it instead of the store directly.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/supply-chain-analytics/internal/analytics"
	"github.com/ukydev/supply-chain-analytics/internal/db"
	"github.com/ukydev/supply-chain-analytics/internal/models"
	"github.com/ukydev/supply-chain-analytics/internal/report"
	"github.com/ukydev/supply-chain-analytics/internal/state"
)

// ErrInvalidRoute is returned when submitted route data fails validation.
var ErrInvalidRoute = errors.New("invalid route")

// SaveRouteInput is the data needed to save a route.
type SaveRouteInput struct {
	Name          string                `json:"name" validate:"required"`
	RouteSegments []models.RouteSegment `json:"routeSegments" validate:"required,min=1,dive"`
}

// PreviewInput is a draft route that is analyzed but not saved.
type PreviewInput struct {
	RouteSegments []models.RouteSegment `json:"routeSegments" validate:"dive"`
}

// Preview is the analytics of a draft route.
type Preview struct {
	Analytics models.SupplyChainAnalytics `json:"analytics"`
	Hotspots  []models.HotspotRoute       `json:"hotspots"`
	Summary   analytics.Summary           `json:"summary"`
}

// RouteSummary is the headline view of a saved analytics record.
type RouteSummary struct {
	Summary     analytics.Summary `json:"summary"`
	Origin      *models.Location  `json:"origin"`
	Destination *models.Location  `json:"destination"`
}

// SupplyChainService saves routes and answers dashboard queries.
type SupplyChainService struct {
	store     db.Store
	dashboard *state.Dashboard
	validate  *validator.Validate
	log       *logrus.Logger
	now       func() time.Time
}

// New creates a service over store and dashboard.
func New(store db.Store, dashboard *state.Dashboard, log *logrus.Logger) *SupplyChainService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SupplyChainService{
		store:     store,
		dashboard: dashboard,
		validate:  validator.New(),
		log:       log,
		now:       time.Now,
	}
}

// Dashboard returns the state the service writes to.
func (s *SupplyChainService) Dashboard() *state.Dashboard {
	return s.dashboard
}

// Load replaces the dashboard contents with everything in the store.
func (s *SupplyChainService) Load(ctx context.Context) error {
	routes, err := s.store.FindRoutes(ctx)
	if err != nil {
		return fmt.Errorf("load routes: %w", err)
	}
	records, err := s.store.FindAnalytics(ctx)
	if err != nil {
		return fmt.Errorf("load analytics: %w", err)
	}
	s.dashboard.Replace(routes, records)
	s.log.WithFields(logrus.Fields{
		"routes":    len(routes),
		"analytics": len(records),
	}).Info("Dashboard loaded from store")
	return nil
}

// SaveRoute validates the input, persists the route and its analytics, and
// appends both to the dashboard.
func (s *SupplyChainService) SaveRoute(ctx context.Context, in SaveRouteInput) (models.SupplyChainAnalytics, error) {
	if err := s.validate.Struct(in); err != nil {
		return models.SupplyChainAnalytics{}, fmt.Errorf("%w: %s", ErrInvalidRoute, err.Error())
	}

	now := s.now().UTC()
	route := models.SupplyChainRoute{
		Name:          in.Name,
		RouteSegments: in.RouteSegments,
		CreatedAt:     now,
	}
	routeID, err := s.store.InsertRoute(ctx, route)
	if err != nil {
		return models.SupplyChainAnalytics{}, fmt.Errorf("save route: %w", err)
	}
	route.ID = routeID

	result := analytics.AggregateAt(route.RouteSegments, now)
	result.Name = route.Name
	result.RouteID = routeID

	analyticsID, err := s.store.InsertAnalytics(ctx, result)
	if err != nil {
		if delErr := s.store.DeleteRoute(ctx, routeID); delErr != nil {
			s.log.WithError(delErr).WithField("route_id", routeID).Warn("Failed to roll back route after analytics insert failure")
		}
		return models.SupplyChainAnalytics{}, fmt.Errorf("save analytics: %w", err)
	}
	result.ID = analyticsID

	s.dashboard.Append(route, result)
	s.log.WithFields(logrus.Fields{
		"route_id":     routeID,
		"analytics_id": analyticsID,
		"segments":     len(route.RouteSegments),
		"emission":     result.Emission,
	}).Info("Route saved")
	return result, nil
}

// Preview analyzes a draft route without saving it. An empty draft yields the
// empty analytics record.
func (s *SupplyChainService) Preview(in PreviewInput) (Preview, error) {
	if err := s.validate.Struct(in); err != nil {
		return Preview{}, fmt.Errorf("%w: %s", ErrInvalidRoute, err.Error())
	}
	result := analytics.AggregateAt(in.RouteSegments, s.now().UTC())
	return Preview{
		Analytics: result,
		Hotspots:  analytics.Rank(result),
		Summary:   analytics.Summarize(in.RouteSegments),
	}, nil
}

// DeleteRoute removes a route and every analytics record linked to it.
func (s *SupplyChainService) DeleteRoute(ctx context.Context, id int64) error {
	if err := s.store.DeleteRoute(ctx, id); err != nil {
		return err
	}
	// The route is gone from the store, so it leaves the dashboard even if
	// cleaning up its analytics fails below.
	s.dashboard.RemoveRoute(id)

	records, err := s.store.FindAnalytics(ctx)
	if err != nil {
		return fmt.Errorf("find analytics for route %d: %w", id, err)
	}
	for _, a := range records {
		if a.RouteID != id {
			continue
		}
		if err := s.store.DeleteAnalytics(ctx, a.ID); err != nil && !errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("delete analytics %d of route %d: %w", a.ID, id, err)
		}
	}

	s.log.WithField("route_id", id).Info("Route deleted")
	return nil
}

// Routes returns the saved routes.
func (s *SupplyChainService) Routes() []models.SupplyChainRoute {
	return s.dashboard.Routes()
}

// AnalyticsList returns all saved analytics records.
func (s *SupplyChainService) AnalyticsList() []models.SupplyChainAnalytics {
	return s.dashboard.Analytics()
}

// Analytics returns one analytics record. Records missing from the dashboard
// are looked up in the store.
func (s *SupplyChainService) Analytics(ctx context.Context, id int64) (models.SupplyChainAnalytics, error) {
	if a, ok := s.dashboard.AnalyticsByID(id); ok {
		return a, nil
	}
	a, err := s.store.FindAnalyticsByID(ctx, id)
	if err != nil {
		return models.SupplyChainAnalytics{}, err
	}
	return *a, nil
}

// Hotspots ranks the segments of a record, keeping those matching query.
func (s *SupplyChainService) Hotspots(ctx context.Context, id int64, query string) ([]models.HotspotRoute, error) {
	a, err := s.Analytics(ctx, id)
	if err != nil {
		return nil, err
	}
	return analytics.FilterHotspots(analytics.Rank(a), query), nil
}

// Opportunities returns the top emitting segments of a record.
func (s *SupplyChainService) Opportunities(ctx context.Context, id int64, fraction float64) ([]models.HotspotRoute, error) {
	a, err := s.Analytics(ctx, id)
	if err != nil {
		return nil, err
	}
	return analytics.Opportunities(a, fraction), nil
}

// Summary returns the headline figures and endpoints of a record.
func (s *SupplyChainService) Summary(ctx context.Context, id int64) (RouteSummary, error) {
	a, err := s.Analytics(ctx, id)
	if err != nil {
		return RouteSummary{}, err
	}
	segments := make([]models.RouteSegment, len(a.SegmentAnalytics))
	for i, sa := range a.SegmentAnalytics {
		segments[i] = sa.RouteSegment
	}
	out := RouteSummary{Summary: analytics.Summarize(segments)}
	if origin, destination, ok := analytics.Endpoints(a); ok {
		out.Origin = &origin
		out.Destination = &destination
	}
	return out, nil
}

// Chart builds the chart payload of a record.
func (s *SupplyChainService) Chart(ctx context.Context, id int64, kind report.ChartKind) (report.ChartData, error) {
	a, err := s.Analytics(ctx, id)
	if err != nil {
		return report.ChartData{}, err
	}
	return report.Chart(a, kind), nil
}

// Map builds the GeoJSON map of a record.
func (s *SupplyChainService) Map(ctx context.Context, id int64) (*geojson.FeatureCollection, error) {
	a, err := s.Analytics(ctx, id)
	if err != nil {
		return nil, err
	}
	return report.Map(a), nil
}
