package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/ukydev/supply-chain-analytics/internal/models"
)

// RecordKind names a group of stored records.
type RecordKind string

const (
	KindRoutes    RecordKind = "routes"
	KindAnalytics RecordKind = "analytics"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("record not found")

func notFound(kind RecordKind, id int64) error {
	return fmt.Errorf("record with key %d not found in store %s: %w", id, kind, ErrNotFound)
}

// RouteCollection defines the interface for route persistence.
type RouteCollection interface {
	InsertRoute(ctx context.Context, route models.SupplyChainRoute) (int64, error)
	FindRoutes(ctx context.Context) ([]models.SupplyChainRoute, error)
	FindRouteByID(ctx context.Context, id int64) (*models.SupplyChainRoute, error)
	DeleteRoute(ctx context.Context, id int64) error
}

// AnalyticsCollection defines the interface for route analytics persistence.
type AnalyticsCollection interface {
	InsertAnalytics(ctx context.Context, analytics models.SupplyChainAnalytics) (int64, error)
	FindAnalytics(ctx context.Context) ([]models.SupplyChainAnalytics, error)
	FindAnalyticsByID(ctx context.Context, id int64) (*models.SupplyChainAnalytics, error)
	DeleteAnalytics(ctx context.Context, id int64) error
}

// Store persists routes and their analytics. Ids are assigned by the store on
// insert, counting up from 1 per record kind; any id already set on the
// record is ignored. Find methods return records in id order.
type Store interface {
	RouteCollection
	AnalyticsCollection
	Close(ctx context.Context) error
}
