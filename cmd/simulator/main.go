package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/supply-chain-analytics/internal/analytics"
	"github.com/ukydev/supply-chain-analytics/internal/models"
	"github.com/ukydev/supply-chain-analytics/internal/service"
)

// Cities for realistic routes
var cities = []models.Location{
	{Name: "London", Latitude: 51.5074, Longitude: -0.1278},
	{Name: "Madrid", Latitude: 40.4168, Longitude: -3.7038},
	{Name: "Paris", Latitude: 48.8566, Longitude: 2.3522},
	{Name: "Istanbul", Latitude: 41.0082, Longitude: 28.9784},
	{Name: "Cardiff", Latitude: 51.4816, Longitude: -3.1791},
	{Name: "Berlin", Latitude: 52.5200, Longitude: 13.4050},
	{Name: "Rotterdam", Latitude: 51.9244, Longitude: 4.4777},
	{Name: "Hamburg", Latitude: 53.5511, Longitude: 9.9937},
	{Name: "Milan", Latitude: 45.4642, Longitude: 9.1900},
	{Name: "Warsaw", Latitude: 52.2297, Longitude: 21.0122},
	{Name: "Vienna", Latitude: 48.2082, Longitude: 16.3738},
	{Name: "Lyon", Latitude: 45.7640, Longitude: 4.8357},
	{Name: "Barcelona", Latitude: 41.3874, Longitude: 2.1686},
	{Name: "Prague", Latitude: 50.0755, Longitude: 14.4378},
	{Name: "Antwerp", Latitude: 51.2194, Longitude: 4.4025},
}

// minLegKm keeps consecutive stops in different metro areas.
const minLegKm = 50

func jitterLocation(base models.Location, meters float64) models.Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Latitude*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return models.Location{
		Name:      base.Name,
		Latitude:  base.Latitude + dLat,
		Longitude: base.Longitude + dLon,
	}
}

func randomStop() models.Location {
	return jitterLocation(cities[rand.Intn(len(cities))], 2000)
}

// nextStop picks a stop far enough from the previous one.
func nextStop(from models.Location) models.Location {
	for i := 0; i < 10; i++ {
		cand := randomStop()
		if analytics.DistanceKm(from, cand) > minLegKm {
			return cand
		}
	}
	return randomStop()
}

// buildRoute creates a route with between 1 and maxLegs legs chained end to
// end, with a freight rate and emission factor per leg.
func buildRoute(seq, maxLegs int) service.SaveRouteInput {
	if maxLegs < 1 {
		maxLegs = 1
	}
	legs := 1 + rand.Intn(maxLegs)

	segments := make([]models.RouteSegment, 0, legs)
	origin := randomStop()
	for i := 0; i < legs; i++ {
		destination := nextStop(origin)
		segments = append(segments, models.RouteSegment{
			Origin:        origin,
			Destination:   destination,
			CostPerKm:     round2(0.8 + rand.Float64()*1.7),
			EmissionPerKm: round2(0.05 + rand.Float64()*0.9),
		})
		origin = destination
	}

	first := segments[0].Origin.Name
	last := segments[len(segments)-1].Destination.Name
	return service.SaveRouteInput{
		Name:          fmt.Sprintf("Sim #%d %s-%s", seq, first, last),
		RouteSegments: segments,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// apiClient talks to the analytics API as the operator.
type apiClient struct {
	baseURL string
	http    *http.Client
	token   string
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *apiClient) post(path string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.http.Do(req)
}

// login exchanges operator credentials for a token and keeps it.
func (c *apiClient) login(username, password string) error {
	resp, err := c.post("/api/auth/login", models.LoginRequest{Username: username, Password: password})
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed with status: %d", resp.StatusCode)
	}

	var result models.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}
	if result.Token == "" {
		return fmt.Errorf("login response has no token")
	}
	c.token = result.Token
	return nil
}

// createRoute saves a route and returns the analytics the API computed.
func (c *apiClient) createRoute(route service.SaveRouteInput) (models.SupplyChainAnalytics, error) {
	resp, err := c.post("/api/routes", route)
	if err != nil {
		return models.SupplyChainAnalytics{}, fmt.Errorf("failed to create route: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.SupplyChainAnalytics{}, fmt.Errorf("route creation failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var result models.SupplyChainAnalytics
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.SupplyChainAnalytics{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return result, nil
}

func envInt(name string, def, min int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= min {
			return n
		}
	}
	return def
}

func main() {
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	username := os.Getenv("SIM_USERNAME")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("SIM_PASSWORD")

	total := envInt("SIM_ROUTES", 20, 1)
	maxLegs := envInt("SIM_MAX_LEGS", 4, 1)
	interval := time.Duration(envInt("SIM_TICK_SECONDS", 2, 1)) * time.Second

	log.WithFields(log.Fields{
		"routes":   total,
		"max_legs": maxLegs,
		"api_url":  apiURL,
		"interval": interval,
	}).Info("Starting route simulation")

	client := newAPIClient(apiURL)
	if err := client.login(username, password); err != nil {
		log.WithError(err).Error("Failed to log in. Ensure SIM_USERNAME and SIM_PASSWORD match the operator account.")
		os.Exit(1)
	}

	tick := time.NewTicker(interval)
	defer tick.Stop()

	created := 0
	for seq := 1; seq <= total; seq++ {
		route := buildRoute(seq, maxLegs)
		result, err := client.createRoute(route)
		if err != nil {
			log.WithError(err).WithField("name", route.Name).Error("Failed to create route")
		} else {
			created++
			log.WithFields(log.Fields{
				"analytics_id": result.ID,
				"name":         result.Name,
				"legs":         len(result.SegmentAnalytics),
				"distance_km":  round2(result.Distance),
				"emission":     round2(result.Emission),
			}).Info("Created route")
		}
		if seq < total {
			<-tick.C
		}
	}

	log.WithField("created_routes", created).Info("Route simulation finished")
}
