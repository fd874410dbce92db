package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/supply-chain-analytics/internal/models"
	"github.com/ukydev/supply-chain-analytics/internal/report"
	"github.com/ukydev/supply-chain-analytics/internal/service"
)

// SupplyChain is the service surface the HTTP layer needs.
type SupplyChain interface {
	SaveRoute(ctx context.Context, in service.SaveRouteInput) (models.SupplyChainAnalytics, error)
	Preview(in service.PreviewInput) (service.Preview, error)
	DeleteRoute(ctx context.Context, id int64) error
	Routes() []models.SupplyChainRoute
	AnalyticsList() []models.SupplyChainAnalytics
	Analytics(ctx context.Context, id int64) (models.SupplyChainAnalytics, error)
	Hotspots(ctx context.Context, id int64, query string) ([]models.HotspotRoute, error)
	Opportunities(ctx context.Context, id int64, fraction float64) ([]models.HotspotRoute, error)
	Summary(ctx context.Context, id int64) (service.RouteSummary, error)
	Chart(ctx context.Context, id int64, kind report.ChartKind) (report.ChartData, error)
	Map(ctx context.Context, id int64) (*geojson.FeatureCollection, error)
}

// ChartResponse is a chart payload plus the time frame the caller asked
// for, which is echoed back unchanged.
type ChartResponse struct {
	report.ChartData
	TimeFrame string `json:"timeFrame,omitempty"`
}

// AnalyticsHandler serves routes and their analytics.
type AnalyticsHandler struct {
	svc SupplyChain
	log *logrus.Logger
}

// NewAnalyticsHandler creates a handler backed by svc.
func NewAnalyticsHandler(svc SupplyChain, log *logrus.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, log: log}
}

// ListRoutes returns every saved route.
func (h *AnalyticsHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Routes())
}

// CreateRoute saves a route and responds with its analytics.
func (h *AnalyticsHandler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	var in service.SaveRouteInput
	if err := decodeJSON(w, r, &in); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	result, err := h.svc.SaveRoute(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// DeleteRoute removes a route and its analytics.
func (h *AnalyticsHandler) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid route ID", http.StatusBadRequest)
		return
	}
	if err := h.svc.DeleteRoute(r.Context(), id); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Preview analyzes a draft route without saving it.
func (h *AnalyticsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var in service.PreviewInput
	if err := decodeJSON(w, r, &in); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	p, err := h.svc.Preview(in)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListAnalytics returns every saved analytics record.
func (h *AnalyticsHandler) ListAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.AnalyticsList())
}

// GetAnalytics returns one analytics record.
func (h *AnalyticsHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid analytics ID", http.StatusBadRequest)
		return
	}
	a, err := h.svc.Analytics(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Hotspots returns the ranked segments, filtered by the q parameter.
func (h *AnalyticsHandler) Hotspots(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid analytics ID", http.StatusBadRequest)
		return
	}
	hotspots, err := h.svc.Hotspots(r.Context(), id, r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, hotspots)
}

// Opportunities returns the top emitting segments. The optional fraction
// parameter selects how many.
func (h *AnalyticsHandler) Opportunities(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid analytics ID", http.StatusBadRequest)
		return
	}

	var fraction float64
	if raw := r.URL.Query().Get("fraction"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, "Invalid fraction", http.StatusBadRequest)
			return
		}
		fraction = f
	}

	top, err := h.svc.Opportunities(r.Context(), id, fraction)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

// Summary returns the headline figures of a record.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid analytics ID", http.StatusBadRequest)
		return
	}
	s, err := h.svc.Summary(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Chart returns chart series for a record.
func (h *AnalyticsHandler) Chart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid analytics ID", http.StatusBadRequest)
		return
	}
	q := r.URL.Query()
	chart, err := h.svc.Chart(r.Context(), id, report.ParseChartKind(q.Get("type")))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ChartResponse{ChartData: chart, TimeFrame: q.Get("timeFrame")})
}

// Map returns a GeoJSON map of a record.
func (h *AnalyticsHandler) Map(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid analytics ID", http.StatusBadRequest)
		return
	}
	fc, err := h.svc.Map(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	body, err := fc.MarshalJSON()
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
