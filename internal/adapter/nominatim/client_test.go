package nominatim

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/biodiversity-map/internal/domain"
	"github.com/couchcryptid/biodiversity-map/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUserAgent     = "biomap-test/1.0"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) *Client {
	return NewClient(baseURL, testUserAgent, 5*time.Second,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_ResolveCity_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "Lucerne Switzerland", r.URL.Query().Get("q"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`[
			{"lat":"47.0505452","lon":"8.3054682","display_name":"Luzern, Schweiz"},
			{"lat":"1.0","lon":"2.0","display_name":"Somewhere else"}
		]`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	loc, err := c.ResolveCity(context.Background(), "Lucerne Switzerland")
	require.NoError(t, err)

	assert.Equal(t, "Lucerne Switzerland", loc.Query)
	assert.Equal(t, "Luzern, Schweiz", loc.DisplayName)
	assert.InDelta(t, 47.0505452, loc.Lat, 1e-9)
	assert.InDelta(t, 8.3054682, loc.Lon, 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.UpstreamRequests.WithLabelValues(apiLabel, "success")), 0)
}

func TestClient_ResolveCity_URLEncodesName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "q=S%C3%A3o+Paulo")
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`[{"lat":"-23.55","lon":"-46.63"}]`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ResolveCity(context.Background(), "São Paulo")
	require.NoError(t, err)
}

func TestClient_ResolveCity_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.ResolveCity(context.Background(), "Atlantis")
	require.ErrorIs(t, err, domain.ErrCityNotFound)
	assert.NotErrorIs(t, err, domain.ErrTransport)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.UpstreamRequests.WithLabelValues(apiLabel, "empty")), 0)
}

func TestClient_ResolveCity_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`usage policy violation`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ResolveCity(context.Background(), "Lucerne")
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.Contains(t, err.Error(), "403")
}

func TestClient_ResolveCity_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ResolveCity(context.Background(), "Lucerne")
	require.ErrorIs(t, err, domain.ErrTransport)
}

func TestClient_ResolveCity_InvalidCoordinate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"north","lon":"8.3"}]`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ResolveCity(context.Background(), "Lucerne")
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.Contains(t, err.Error(), "invalid lat")
}

func TestClient_ResolveCity_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := testClient(srv.URL).ResolveCity(context.Background(), "Lucerne")
	require.ErrorIs(t, err, domain.ErrTransport)
}

func TestClient_ResolveCity_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.ResolveCity(context.Background(), "Lucerne")
	require.ErrorIs(t, err, domain.ErrTransport)
}
