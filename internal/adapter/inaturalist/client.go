package inaturalist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/biodiversity-map/internal/domain"
	"github.com/couchcryptid/biodiversity-map/internal/observability"
)

const (
	apiLabel = "inaturalist"

	// PageSize is the number of results requested. Only the first page is
	// fetched; ObservationPage.Truncated reports when more exist.
	PageSize = 200

	// maxBodyBytes guards against oversized responses (200 results with
	// photos and taxa are typically well under 2 MiB).
	maxBodyBytes = 8 << 20
)

// Client implements domain.ObservationSource using the iNaturalist v1 API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an iNaturalist client. A zero timeout leaves requests
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

// FetchObservations returns the first page of observations within radiusKm of (lat, lon).
func (c *Client) FetchObservations(ctx context.Context, lat, lon float64, radiusKm int) (domain.ObservationPage, error) {
	start := time.Now()
	page, err := c.fetch(ctx, lat, lon, radiusKm)

	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
		c.logger.Warn("observation fetch failed", "lat", lat, "lon", lon, "radius_km", radiusKm, "error", err)
	case len(page.Observations) == 0:
		outcome = "empty"
	}
	c.metrics.ObserveUpstream(apiLabel, outcome, time.Since(start).Seconds())

	return page, err
}

func (c *Client) fetch(ctx context.Context, lat, lon float64, radiusKm int) (domain.ObservationPage, error) {
	params := url.Values{
		"lat":      {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lng":      {strconv.FormatFloat(lon, 'f', -1, 64)},
		"radius":   {strconv.Itoa(radiusKm)},
		"per_page": {strconv.Itoa(PageSize)},
	}
	reqURL := fmt.Sprintf("%s/observations?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.ObservationPage{}, fmt.Errorf("create request: %w: %w", domain.ErrTransport, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ObservationPage{}, fmt.Errorf("inaturalist request: %w: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.ObservationPage{}, fmt.Errorf("%w: inaturalist status %d: %s", domain.ErrTransport, resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return domain.ObservationPage{}, fmt.Errorf("read inaturalist response: %w: %w", domain.ErrTransport, err)
	}
	if len(body) > maxBodyBytes {
		return domain.ObservationPage{}, fmt.Errorf("%w: %w", domain.ErrTransport, errPayloadTooLarge)
	}

	var decoded response
	if err := json.Unmarshal(body, &decoded); err != nil {
		return domain.ObservationPage{}, fmt.Errorf("decode inaturalist response: %w: %w", domain.ErrTransport, err)
	}

	observations := make([]domain.Observation, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		observations = append(observations, mapResult(r))
	}

	return domain.ObservationPage{
		Observations: observations,
		TotalResults: max(decoded.TotalResults, len(observations)),
		PerPage:      PageSize,
	}, nil
}

var errPayloadTooLarge = errors.New("payload too large")

// mapResult converts one API result into a domain observation.
// Derived fields are left for the classifier.
func mapResult(r result) domain.Observation {
	obs := domain.Observation{
		ID:           r.ID,
		SpeciesLabel: speciesLabel(r),
	}

	if r.GeoJSON != nil && len(r.GeoJSON.Coordinates) >= 2 {
		obs.Coordinates = &domain.Coordinates{
			Lon: r.GeoJSON.Coordinates[0],
			Lat: r.GeoJSON.Coordinates[1],
		}
	}

	if len(r.Photos) > 0 && r.Photos[0].URL != "" {
		obs.PhotoURL = strings.Replace(r.Photos[0].URL, "square", "medium", 1)
	}

	if r.Taxon != nil {
		obs.WikipediaURL = r.Taxon.WikipediaURL
		obs.IsThreatened = r.Taxon.Threatened
		obs.IsInvasive = r.Taxon.EstablishmentMeans == "introduced"
	}

	return obs
}

// speciesLabel applies the fallback chain species_guess, taxon.name, "Unknown".
func speciesLabel(r result) string {
	if r.SpeciesGuess != "" {
		return r.SpeciesGuess
	}
	if r.Taxon != nil && r.Taxon.Name != "" {
		return r.Taxon.Name
	}
	return "Unknown"
}

// iNaturalist API response types.

type response struct {
	TotalResults int      `json:"total_results"`
	Page         int      `json:"page"`
	PerPage      int      `json:"per_page"`
	Results      []result `json:"results"`
}

type result struct {
	ID           int64    `json:"id"`
	SpeciesGuess string   `json:"species_guess"`
	Taxon        *taxon   `json:"taxon"`
	GeoJSON      *geoJSON `json:"geojson"`
	Photos       []photo  `json:"photos"`
}

type taxon struct {
	Name               string             `json:"name"`
	Threatened         bool               `json:"threatened"`
	EstablishmentMeans establishmentMeans `json:"establishment_means"`
	WikipediaURL       string             `json:"wikipedia_url"`
}

// establishmentMeans accepts both the plain string form ("introduced") and
// the place-scoped object form ({"establishment_means": "introduced", ...}).
type establishmentMeans string

func (e *establishmentMeans) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = establishmentMeans(s)
		return nil
	}
	var obj struct {
		EstablishmentMeans string `json:"establishment_means"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("establishment_means: %w", err)
	}
	*e = establishmentMeans(obj.EstablishmentMeans)
	return nil
}

type geoJSON struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}

type photo struct {
	URL string `json:"url"`
}
