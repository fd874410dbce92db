package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/supply-chain-analytics/internal/models"
)

func route(id int64) models.SupplyChainRoute {
	return models.SupplyChainRoute{ID: id, Name: "route"}
}

func analyticsFor(id, routeID int64) models.SupplyChainAnalytics {
	return models.SupplyChainAnalytics{ID: id, RouteID: routeID, Emission: float64(id)}
}

func TestDashboard_StartsEmpty(t *testing.T) {
	d := New()
	assert.NotNil(t, d.Routes())
	assert.Empty(t, d.Routes())
	assert.Empty(t, d.Analytics())

	_, ok := d.Latest()
	assert.False(t, ok)
}

func TestDashboard_AppendAndLookup(t *testing.T) {
	d := New()
	d.Append(route(1), analyticsFor(1, 1))
	d.Append(route(2), analyticsFor(2, 2))

	assert.Len(t, d.Routes(), 2)
	latest, ok := d.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(2), latest.ID)

	a, ok := d.AnalyticsByID(1)
	require.True(t, ok)
	assert.Equal(t, int64(1), a.RouteID)

	_, ok = d.AnalyticsByID(3)
	assert.False(t, ok)
}

func TestDashboard_ReturnsCopies(t *testing.T) {
	d := New()
	d.Append(route(1), analyticsFor(1, 1))

	routes := d.Routes()
	routes[0].Name = "changed"
	assert.Equal(t, "route", d.Routes()[0].Name)
}

func TestDashboard_Replace(t *testing.T) {
	d := New()
	d.Append(route(9), analyticsFor(9, 9))

	var events []Event
	d.Subscribe(func(e Event) { events = append(events, e) })

	d.Replace(
		[]models.SupplyChainRoute{route(1), route(2)},
		[]models.SupplyChainAnalytics{analyticsFor(1, 1)},
	)

	assert.Len(t, d.Routes(), 2)
	assert.Len(t, d.Analytics(), 1)
	require.Len(t, events, 1)
	assert.Equal(t, EventReloaded, events[0].Kind)
}

func TestDashboard_RemoveRouteCascades(t *testing.T) {
	d := New()
	d.Append(route(1), analyticsFor(1, 1))
	d.Append(route(2), analyticsFor(2, 2))

	var events []Event
	d.Subscribe(func(e Event) { events = append(events, e) })

	removed, ok := d.RemoveRoute(1)
	assert.True(t, ok)
	assert.Equal(t, []int64{1}, removed)
	assert.Len(t, d.Routes(), 1)
	_, found := d.AnalyticsByID(1)
	assert.False(t, found)

	require.Len(t, events, 1)
	assert.Equal(t, EventRouteDeleted, events[0].Kind)
	assert.Equal(t, int64(1), events[0].RouteID)

	removed, ok = d.RemoveRoute(1)
	assert.False(t, ok)
	assert.Empty(t, removed)
	assert.Len(t, events, 1, "no event when nothing was removed")
}

func TestDashboard_ListenerSeesSavedRecord(t *testing.T) {
	d := New()

	var got Event
	d.Subscribe(func(e Event) {
		got = e
		// Reading back inside the listener must not deadlock.
		_, ok := d.AnalyticsByID(e.Analytics.ID)
		assert.True(t, ok)
	})

	d.Append(route(5), analyticsFor(7, 5))

	assert.Equal(t, EventAnalyticsSaved, got.Kind)
	require.NotNil(t, got.Route)
	require.NotNil(t, got.Analytics)
	assert.Equal(t, int64(5), got.Route.ID)
	assert.Equal(t, int64(7), got.Analytics.ID)
}

func TestDashboard_Unsubscribe(t *testing.T) {
	d := New()

	calls := 0
	unsubscribe := d.Subscribe(func(Event) { calls++ })
	d.Append(route(1), analyticsFor(1, 1))
	unsubscribe()
	unsubscribe()
	d.Append(route(2), analyticsFor(2, 2))

	assert.Equal(t, 1, calls)
}

func TestDashboard_ConcurrentAccess(t *testing.T) {
	d := New()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(2)
		go func(id int64) {
			defer wg.Done()
			d.Append(route(id), analyticsFor(id, id))
		}(int64(i))
		go func() {
			defer wg.Done()
			_ = d.Analytics()
			_, _ = d.Latest()
		}()
	}
	wg.Wait()

	assert.Len(t, d.Routes(), 50)
	assert.Len(t, d.Analytics(), 50)
}
