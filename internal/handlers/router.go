package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/supply-chain-analytics/internal/auth"
	"github.com/ukydev/supply-chain-analytics/internal/geocode"
	"github.com/ukydev/supply-chain-analytics/internal/middleware"
)

// Deps are the collaborators the HTTP API is built from.
type Deps struct {
	Service     SupplyChain
	Auth        *auth.Service
	Lookup      geocode.Lookup // nil disables autocomplete
	RateLimiter *middleware.RateLimitMiddleware
	Log         *logrus.Logger
}

// Health reports that the process is serving.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NewRouter registers every endpoint and wraps them in request logging and
// authentication.
func NewRouter(d Deps) http.Handler {
	analytics := NewAnalyticsHandler(d.Service, d.Log)
	login := NewAuthHandler(d.Auth, d.Log)
	locations := NewLocationHandler(d.Lookup, d.Log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", Health)
	mux.HandleFunc("POST /api/auth/login", login.Login)

	mux.HandleFunc("GET /api/routes", analytics.ListRoutes)
	mux.HandleFunc("POST /api/routes", analytics.CreateRoute)
	mux.HandleFunc("DELETE /api/routes/{id}", analytics.DeleteRoute)

	mux.HandleFunc("POST /api/analytics/preview", analytics.Preview)
	mux.HandleFunc("GET /api/analytics", analytics.ListAnalytics)
	mux.HandleFunc("GET /api/analytics/{id}", analytics.GetAnalytics)
	mux.HandleFunc("GET /api/analytics/{id}/hotspots", analytics.Hotspots)
	mux.HandleFunc("GET /api/analytics/{id}/opportunities", analytics.Opportunities)
	mux.HandleFunc("GET /api/analytics/{id}/summary", analytics.Summary)
	mux.HandleFunc("GET /api/analytics/{id}/chart", analytics.Chart)
	mux.HandleFunc("GET /api/analytics/{id}/map", analytics.Map)

	var autocomplete http.Handler = http.HandlerFunc(locations.Autocomplete)
	if d.RateLimiter != nil {
		autocomplete = d.RateLimiter.RateLimit(autocomplete)
	}
	mux.Handle("GET /api/loc/autocomplete", autocomplete)

	authMiddleware := middleware.NewAuthMiddleware(d.Auth)
	return middleware.RequestLogger(d.Log)(authMiddleware.Authenticate(mux))
}
