// Package state holds the in-process view of saved routes and their analytics
// that the HTTP layer reads from. Changes are announced to subscribed
// listeners.
package state

import (
	"sort"
	"sync"

	"github.com/ukydev/supply-chain-analytics/internal/models"
)

// EventKind identifies what changed in the dashboard.
type EventKind string

const (
	EventReloaded       EventKind = "reloaded"
	EventAnalyticsSaved EventKind = "analytics_saved"
	EventRouteDeleted   EventKind = "route_deleted"
)

// Event describes a single change. Route and Analytics are set for
// EventAnalyticsSaved; RouteID and RemovedAnalytics for EventRouteDeleted.
type Event struct {
	Kind             EventKind
	Route            *models.SupplyChainRoute
	Analytics        *models.SupplyChainAnalytics
	RouteID          int64
	RemovedAnalytics []int64
}

// Listener receives dashboard events. It is called synchronously, outside the
// dashboard lock, so it may read the dashboard.
type Listener func(Event)

// Dashboard is safe for concurrent use.
type Dashboard struct {
	mu        sync.RWMutex
	routes    []models.SupplyChainRoute
	analytics []models.SupplyChainAnalytics

	listenerMu   sync.Mutex
	listeners    map[int]Listener
	nextListener int
}

// New returns an empty dashboard.
func New() *Dashboard {
	return &Dashboard{
		routes:    []models.SupplyChainRoute{},
		analytics: []models.SupplyChainAnalytics{},
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers l and returns a function that removes it.
func (d *Dashboard) Subscribe(l Listener) (unsubscribe func()) {
	d.listenerMu.Lock()
	defer d.listenerMu.Unlock()

	id := d.nextListener
	d.nextListener++
	d.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			d.listenerMu.Lock()
			delete(d.listeners, id)
			d.listenerMu.Unlock()
		})
	}
}

func (d *Dashboard) notify(e Event) {
	d.listenerMu.Lock()
	ids := make([]int, 0, len(d.listeners))
	for id := range d.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	ls := make([]Listener, 0, len(ids))
	for _, id := range ids {
		ls = append(ls, d.listeners[id])
	}
	d.listenerMu.Unlock()

	for _, l := range ls {
		l(e)
	}
}

// Routes returns a copy of the saved routes in save order.
func (d *Dashboard) Routes() []models.SupplyChainRoute {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.SupplyChainRoute{}, d.routes...)
}

// Analytics returns a copy of the saved analytics records in save order.
func (d *Dashboard) Analytics() []models.SupplyChainAnalytics {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.SupplyChainAnalytics{}, d.analytics...)
}

// Latest returns the most recently saved analytics record.
func (d *Dashboard) Latest() (models.SupplyChainAnalytics, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.analytics) == 0 {
		return models.SupplyChainAnalytics{}, false
	}
	return d.analytics[len(d.analytics)-1], true
}

// AnalyticsByID looks up an analytics record.
func (d *Dashboard) AnalyticsByID(id int64) (models.SupplyChainAnalytics, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, a := range d.analytics {
		if a.ID == id {
			return a, true
		}
	}
	return models.SupplyChainAnalytics{}, false
}

// Replace swaps in a full set of records, typically loaded from the store.
func (d *Dashboard) Replace(routes []models.SupplyChainRoute, analytics []models.SupplyChainAnalytics) {
	d.mu.Lock()
	d.routes = append([]models.SupplyChainRoute{}, routes...)
	d.analytics = append([]models.SupplyChainAnalytics{}, analytics...)
	d.mu.Unlock()

	d.notify(Event{Kind: EventReloaded})
}

// Append adds a newly saved route together with its analytics.
func (d *Dashboard) Append(route models.SupplyChainRoute, analytics models.SupplyChainAnalytics) {
	d.mu.Lock()
	d.routes = append(d.routes, route)
	d.analytics = append(d.analytics, analytics)
	d.mu.Unlock()

	d.notify(Event{Kind: EventAnalyticsSaved, Route: &route, Analytics: &analytics})
}

// RemoveRoute drops the route and every analytics record linked to it. It
// returns the ids of the removed analytics and whether the route was present.
func (d *Dashboard) RemoveRoute(routeID int64) ([]int64, bool) {
	d.mu.Lock()
	found := false
	routes := d.routes[:0:0]
	for _, r := range d.routes {
		if r.ID == routeID {
			found = true
			continue
		}
		routes = append(routes, r)
	}
	removed := []int64{}
	analytics := d.analytics[:0:0]
	for _, a := range d.analytics {
		if a.RouteID == routeID {
			removed = append(removed, a.ID)
			continue
		}
		analytics = append(analytics, a)
	}
	d.routes = routes
	d.analytics = analytics
	d.mu.Unlock()

	if found || len(removed) > 0 {
		d.notify(Event{Kind: EventRouteDeleted, RouteID: routeID, RemovedAnalytics: removed})
	}
	return removed, found
}
