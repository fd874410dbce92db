package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/supply-chain-analytics/internal/auth"
	"github.com/ukydev/supply-chain-analytics/internal/config"
	"github.com/ukydev/supply-chain-analytics/internal/db"
	"github.com/ukydev/supply-chain-analytics/internal/middleware"
	"github.com/ukydev/supply-chain-analytics/internal/models"
	"github.com/ukydev/supply-chain-analytics/internal/service"
	"github.com/ukydev/supply-chain-analytics/internal/state"
)

const equatorRoute = `{
	"name": "Equator",
	"routeSegments": [
		{"origin": {"name": "Quito", "latitude": 0, "longitude": 0},
		 "destination": {"name": "Macapa", "latitude": 0, "longitude": 1},
		 "costPerKm": 2, "emissionPerKm": 0.5},
		{"origin": {"name": "Macapa", "latitude": 0, "longitude": 1},
		 "destination": {"name": "Libreville", "latitude": 0, "longitude": 2},
		 "costPerKm": 2, "emissionPerKm": 1.0}
	]
}`

// MockLookup is a mock implementation of geocode.Lookup
type MockLookup struct {
	mock.Mock
}

func (m *MockLookup) Autocomplete(ctx context.Context, query string) ([]models.Location, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Location), args.Error(1)
}

type testServer struct {
	handler http.Handler
	auth    *auth.Service
	lookup  *MockLookup
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := quietLogger()

	authService, err := auth.NewService(config.AuthConfig{
		JWTSecret: "handler-test",
		Username:  "operator",
		Password:  "hunter2",
	})
	require.NoError(t, err)

	lookup := new(MockLookup)
	svc := service.New(db.NewMemoryStore(), state.New(), log)
	return &testServer{
		handler: NewRouter(Deps{
			Service:     svc,
			Auth:        authService,
			Lookup:      lookup,
			RateLimiter: middleware.NewRateLimitMiddleware(3, time.Minute),
			Log:         log,
		}),
		auth:   authService,
		lookup: lookup,
	}
}

func (s *testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) token(t *testing.T) string {
	t.Helper()
	token, _, err := s.auth.GenerateToken("operator")
	require.NoError(t, err)
	return token
}

// saveRoute posts the equator route and returns the created analytics id.
func (s *testServer) saveRoute(t *testing.T) int64 {
	t.Helper()
	w := s.do("POST", "/api/routes", equatorRoute, s.token(t))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var a models.SupplyChainAnalytics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	return a.ID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do("GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))
}

func TestAuthHandler_Login(t *testing.T) {
	s := newTestServer(t)

	t.Run("successful login", func(t *testing.T) {
		w := s.do("POST", "/api/auth/login", `{"username":"operator","password":"hunter2"}`, "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Greater(t, resp.ExpiresAt, time.Now().Unix())

		claims, err := s.auth.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "operator", claims.Subject)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := s.do("POST", "/api/auth/login", `{"username":"operator","password":"nope"}`, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := s.do("POST", "/api/auth/login", `{"username":"operator"}`, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		w := s.do("POST", "/api/auth/login", `{`, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCreateRoute(t *testing.T) {
	s := newTestServer(t)

	t.Run("requires token", func(t *testing.T) {
		w := s.do("POST", "/api/routes", equatorRoute, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("saves and returns analytics", func(t *testing.T) {
		w := s.do("POST", "/api/routes", equatorRoute, s.token(t))
		require.Equal(t, http.StatusCreated, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, float64(1), body["id"])
		assert.Equal(t, float64(1), body["routeId"])
		assert.Equal(t, "Equator", body["name"])
		assert.InDelta(t, 222.4, body["distance"], 0.05)
		assert.InDelta(t, 444.8, body["cost"], 0.1)
		assert.NotNil(t, body["createdAt"])
		segments := body["segmentAnalytics"].([]interface{})
		require.Len(t, segments, 2)
		assert.Equal(t, "Truck", segments[0].(map[string]interface{})["mode"])
	})

	t.Run("rejects invalid route", func(t *testing.T) {
		w := s.do("POST", "/api/routes", `{"name":"","routeSegments":[]}`, s.token(t))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		w := s.do("POST", "/api/routes", `not json`, s.token(t))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("listed afterwards", func(t *testing.T) {
		w := s.do("GET", "/api/routes", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		var routes []models.SupplyChainRoute
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &routes))
		require.Len(t, routes, 1)
		assert.Equal(t, "Equator", routes[0].Name)

		w = s.do("GET", "/api/analytics", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		var records []models.SupplyChainAnalytics
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
		assert.Len(t, records, 1)
	})
}

func TestDeleteRoute(t *testing.T) {
	s := newTestServer(t)
	id := s.saveRoute(t)

	w := s.do("DELETE", "/api/routes/1", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do("DELETE", "/api/routes/1", "", s.token(t))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do("GET", "/api/analytics/"+itoa(id), "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do("DELETE", "/api/routes/1", "", s.token(t))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do("DELETE", "/api/routes/abc", "", s.token(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreview(t *testing.T) {
	s := newTestServer(t)

	w := s.do("POST", "/api/analytics/preview", equatorRoute, "")
	require.Equal(t, http.StatusOK, w.Code)

	var p service.Preview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Len(t, p.Analytics.SegmentAnalytics, 2)
	require.Len(t, p.Hotspots, 2)
	assert.Equal(t, "Macapa", p.Hotspots[0].Origin.Name)

	w = s.do("POST", "/api/analytics/preview", `{"routeSegments":[]}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Analytics map[string]interface{} `json:"analytics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Nil(t, body.Analytics["createdAt"])
	assert.Equal(t, float64(0), body.Analytics["emission"])

	w = s.do("GET", "/api/routes", "", "")
	assert.JSONEq(t, `[]`, w.Body.String(), "preview saves nothing")
}

func TestAnalyticsQueries(t *testing.T) {
	s := newTestServer(t)
	id := s.saveRoute(t)
	base := "/api/analytics/" + itoa(id)

	t.Run("get", func(t *testing.T) {
		w := s.do("GET", base, "", "")
		assert.Equal(t, http.StatusOK, w.Code)

		w = s.do("GET", "/api/analytics/999", "", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "not found in store analytics")

		w = s.do("GET", "/api/analytics/zero", "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("hotspots", func(t *testing.T) {
		w := s.do("GET", base+"/hotspots", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		var all []models.HotspotRoute
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
		require.Len(t, all, 2)
		assert.Equal(t, 50.0, all[0].PercentileRank)
		assert.Equal(t, 0.0, all[1].PercentileRank)

		w = s.do("GET", base+"/hotspots?q=LIBRE", "", "")
		var filtered []models.HotspotRoute
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &filtered))
		require.Len(t, filtered, 1)
		assert.Equal(t, "Libreville", filtered[0].Destination.Name)
	})

	t.Run("opportunities", func(t *testing.T) {
		w := s.do("GET", base+"/opportunities?fraction=1", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		var top []models.HotspotRoute
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &top))
		assert.Len(t, top, 2)

		w = s.do("GET", base+"/opportunities", "", "")
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &top))
		assert.Len(t, top, 1)

		w = s.do("GET", base+"/opportunities?fraction=lots", "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("summary", func(t *testing.T) {
		w := s.do("GET", base+"/summary", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		var sum service.RouteSummary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
		assert.Equal(t, 2, sum.Summary.SegmentCount)
		require.NotNil(t, sum.Origin)
		assert.Equal(t, "Quito", sum.Origin.Name)
		assert.Equal(t, "Libreville", sum.Destination.Name)
	})

	t.Run("chart", func(t *testing.T) {
		w := s.do("GET", base+"/chart?type=bar&timeFrame=week", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		var chart map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &chart))
		assert.Equal(t, "bar", chart["type"])
		assert.Equal(t, "week", chart["timeFrame"])
		assert.Equal(t, []interface{}{"Segment 1", "Segment 2"}, chart["labels"])
	})

	t.Run("map", func(t *testing.T) {
		w := s.do("GET", base+"/map", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/geo+json", w.Header().Get("Content-Type"))
		fc, err := geojson.UnmarshalFeatureCollection(w.Body.Bytes())
		require.NoError(t, err)
		assert.Len(t, fc.Features, 6)
	})
}

func TestAutocomplete(t *testing.T) {
	t.Run("returns suggestions", func(t *testing.T) {
		s := newTestServer(t)
		s.lookup.On("Autocomplete", mock.Anything, "ham").
			Return([]models.Location{{Name: "Hamburg", Latitude: 53.55, Longitude: 9.99}}, nil)

		w := s.do("GET", "/api/loc/autocomplete?q=ham", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[{"name":"Hamburg","latitude":53.55,"longitude":9.99}]`, w.Body.String())
		s.lookup.AssertExpectations(t)
	})

	t.Run("upstream failure", func(t *testing.T) {
		s := newTestServer(t)
		s.lookup.On("Autocomplete", mock.Anything, "x").Return(nil, errors.New("boom"))

		w := s.do("GET", "/api/loc/autocomplete?q=x", "", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Server Error\n", w.Body.String())
	})

	t.Run("not configured", func(t *testing.T) {
		h := NewLocationHandler(nil, quietLogger())
		w := httptest.NewRecorder()
		h.Autocomplete(w, httptest.NewRequest("GET", "/api/loc/autocomplete?q=x", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Server Error\n", w.Body.String())
	})

	t.Run("rate limited", func(t *testing.T) {
		s := newTestServer(t)
		s.lookup.On("Autocomplete", mock.Anything, "x").Return([]models.Location{}, nil)

		for i := 0; i < 3; i++ {
			w := s.do("GET", "/api/loc/autocomplete?q=x", "", "")
			require.Equal(t, http.StatusOK, w.Code)
		}
		w := s.do("GET", "/api/loc/autocomplete?q=x", "", "")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})
}

// MockSupplyChain is a mock implementation of SupplyChain for failure paths
type MockSupplyChain struct {
	mock.Mock
	SupplyChain
}

func (m *MockSupplyChain) Analytics(ctx context.Context, id int64) (models.SupplyChainAnalytics, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.SupplyChainAnalytics), args.Error(1)
}

func TestGetAnalytics_InternalError(t *testing.T) {
	svc := new(MockSupplyChain)
	svc.On("Analytics", mock.Anything, int64(4)).
		Return(models.SupplyChainAnalytics{}, errors.New("connection reset"))

	h := NewAnalyticsHandler(svc, quietLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/analytics/{id}", h.GetAnalytics)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/analytics/4", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
	svc.AssertExpectations(t)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
