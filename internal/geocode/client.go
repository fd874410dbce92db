// Package geocode looks up place names through a LocationIQ style
// autocomplete endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ukydev/supply-chain-analytics/internal/models"
)

// MaxResults is the number of suggestions requested from the upstream.
const MaxResults = 5

// Lookup suggests locations for a partial place name.
type Lookup interface {
	Autocomplete(ctx context.Context, query string) ([]models.Location, error)
}

// Client calls the upstream autocomplete endpoint. It is safe for concurrent
// use.
type Client struct {
	session     *http.Client
	apiKey      string
	endpoint    string
	maxAttempts int
	backoff     time.Duration
}

// NewClient creates a client for the given endpoint and key.
func NewClient(endpoint, apiKey string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("autocomplete endpoint is empty")
	}
	if apiKey == "" {
		return nil, errors.New("autocomplete api key is empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		session:     &http.Client{Timeout: timeout},
		apiKey:      apiKey,
		endpoint:    endpoint,
		maxAttempts: 4,
		backoff:     200 * time.Millisecond,
	}, nil
}

// coordinate accepts both JSON numbers and numeric strings.
type coordinate float64

func (c *coordinate) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse coordinate %q: %w", s, err)
	}
	*c = coordinate(f)
	return nil
}

type place struct {
	PlaceID     json.RawMessage `json:"place_id"`
	DisplayName string          `json:"display_name"`
	Lat         coordinate      `json:"lat"`
	Lon         coordinate      `json:"lon"`
}

// hasID reports whether place_id holds a usable value. Missing, null,
// empty string, zero and false all count as no id.
func (p place) hasID() bool {
	if len(p.PlaceID) == 0 {
		return false
	}
	var id any
	if err := json.Unmarshal(p.PlaceID, &id); err != nil {
		return false
	}
	switch v := id.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case float64:
		return v != 0
	case bool:
		return v
	default:
		return true
	}
}

// Autocomplete returns up to MaxResults locations for query. A blank query
// returns an empty list without calling the upstream, as does a response
// whose first entry carries no place id.
func (c *Client) Autocomplete(ctx context.Context, query string) ([]models.Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Location{}, nil
	}

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		q := req.URL.Query()
		q.Set("key", c.apiKey)
		q.Set("q", query)
		q.Set("limit", strconv.Itoa(MaxResults))
		q.Set("dedupe", "1")
		req.URL.RawQuery = q.Encode()
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("autocomplete %q: %w", query, err)
	}
	defer resp.Body.Close()

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode autocomplete response: %w", err)
	}
	if len(places) == 0 || !places[0].hasID() {
		return []models.Location{}, nil
	}
	if len(places) > MaxResults {
		places = places[:MaxResults]
	}

	out := make([]models.Location, 0, len(places))
	for _, p := range places {
		out = append(out, models.Location{
			Name:      p.DisplayName,
			Latitude:  float64(p.Lat),
			Longitude: float64(p.Lon),
		})
	}
	return out, nil
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// doWithRetry retries network errors and 429/5xx responses with exponential
// backoff until the attempts run out or ctx is done.
func (c *Client) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	backoff := c.backoff
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, err
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(err) || attempt == c.maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return nil, lastErr
}

func retryable(err error) bool {
	var he *httpStatusError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
