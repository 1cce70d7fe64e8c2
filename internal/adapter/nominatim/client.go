package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/biodiversity-map/internal/domain"
	"github.com/couchcryptid/biodiversity-map/internal/observability"
)

const apiLabel = "nominatim"

// Client implements domain.Geocoder using the OpenStreetMap Nominatim search API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Nominatim client. A zero timeout leaves requests
// bounded only by their context.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		userAgent:  userAgent,
		metrics:    metrics,
		logger:     logger,
	}
}

// ResolveCity looks up a city name and returns the first match.
func (c *Client) ResolveCity(ctx context.Context, name string) (domain.CityLocation, error) {
	start := time.Now()
	loc, outcome, err := c.search(ctx, name)
	c.metrics.ObserveUpstream(apiLabel, outcome, time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn("city lookup failed", "city", name, "error", err)
	}
	return loc, err
}

func (c *Client) search(ctx context.Context, name string) (domain.CityLocation, string, error) {
	params := url.Values{
		"format": {"json"},
		"q":      {name},
	}
	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.CityLocation{}, "error", fmt.Errorf("create request: %w: %w", domain.ErrTransport, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.CityLocation{}, "error", fmt.Errorf("nominatim request: %w: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.CityLocation{}, "error", fmt.Errorf("%w: nominatim status %d: %s", domain.ErrTransport, resp.StatusCode, body)
	}

	var results []place
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.CityLocation{}, "error", fmt.Errorf("decode nominatim response: %w: %w", domain.ErrTransport, err)
	}

	if len(results) == 0 {
		return domain.CityLocation{}, "empty", domain.ErrCityNotFound
	}

	first := results[0]
	lat, err := strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return domain.CityLocation{}, "error", fmt.Errorf("%w: invalid lat %q", domain.ErrTransport, first.Lat)
	}
	lon, err := strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return domain.CityLocation{}, "error", fmt.Errorf("%w: invalid lon %q", domain.ErrTransport, first.Lon)
	}

	return domain.CityLocation{
		Query:       name,
		DisplayName: first.DisplayName,
		Lat:         lat,
		Lon:         lon,
	}, "success", nil
}

// Nominatim API response types.

type place struct {
	Lat         string `json:"lat"` // numeric string
	Lon         string `json:"lon"` // numeric string
	DisplayName string `json:"display_name"`
}
