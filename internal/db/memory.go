package db

import (
	"context"
	"sort"
	"sync"

	"github.com/ukydev/supply-chain-analytics/internal/models"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	routes    map[int64]models.SupplyChainRoute
	analytics map[int64]models.SupplyChainAnalytics
	lastID    map[RecordKind]int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		routes:    make(map[int64]models.SupplyChainRoute),
		analytics: make(map[int64]models.SupplyChainAnalytics),
		lastID:    make(map[RecordKind]int64),
	}
}

func (s *MemoryStore) nextID(kind RecordKind) int64 {
	s.lastID[kind]++
	return s.lastID[kind]
}

// InsertRoute stores a copy of the route under a new id.
func (s *MemoryStore) InsertRoute(ctx context.Context, route models.SupplyChainRoute) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	route.ID = s.nextID(KindRoutes)
	route.RouteSegments = append([]models.RouteSegment(nil), route.RouteSegments...)
	s.routes[route.ID] = route
	return route.ID, nil
}

// FindRoutes returns all routes.
func (s *MemoryStore) FindRoutes(ctx context.Context) ([]models.SupplyChainRoute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SupplyChainRoute, 0, len(s.routes))
	for _, r := range s.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindRouteByID finds a route by its ID.
func (s *MemoryStore) FindRouteByID(ctx context.Context, id int64) (*models.SupplyChainRoute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.routes[id]
	if !ok {
		return nil, notFound(KindRoutes, id)
	}
	return &r, nil
}

// DeleteRoute deletes a route by its ID.
func (s *MemoryStore) DeleteRoute(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.routes[id]; !ok {
		return notFound(KindRoutes, id)
	}
	delete(s.routes, id)
	return nil
}

// InsertAnalytics stores a copy of the analytics record under a new id.
func (s *MemoryStore) InsertAnalytics(ctx context.Context, a models.SupplyChainAnalytics) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = s.nextID(KindAnalytics)
	a.SegmentAnalytics = append([]models.SegmentAnalytics(nil), a.SegmentAnalytics...)
	s.analytics[a.ID] = a
	return a.ID, nil
}

// FindAnalytics returns all analytics records.
func (s *MemoryStore) FindAnalytics(ctx context.Context) ([]models.SupplyChainAnalytics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SupplyChainAnalytics, 0, len(s.analytics))
	for _, a := range s.analytics {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindAnalyticsByID finds an analytics record by its ID.
func (s *MemoryStore) FindAnalyticsByID(ctx context.Context, id int64) (*models.SupplyChainAnalytics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.analytics[id]
	if !ok {
		return nil, notFound(KindAnalytics, id)
	}
	return &a, nil
}

// DeleteAnalytics deletes an analytics record by its ID.
func (s *MemoryStore) DeleteAnalytics(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.analytics[id]; !ok {
		return notFound(KindAnalytics, id)
	}
	delete(s.analytics, id)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}
