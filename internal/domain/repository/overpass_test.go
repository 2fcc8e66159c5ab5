package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namrata935/polycentric-el/internal/metrics"
)

const overpassFixture = `{
  "version": 0.6,
  "generator": "Overpass API",
  "osm3s": {"timestamp_osm_base": "2024-05-01T10:00:00Z", "copyright": "ODbL"},
  "elements": [
    {"type": "node", "id": 101, "lat": 12.9716, "lon": 77.5946, "tags": {"amenity": "cafe", "name": "Brew"}},
    {"type": "node", "id": 201, "lat": 12.9700, "lon": 77.6000},
    {"type": "node", "id": 202, "lat": 12.9800, "lon": 77.6100},
    {"type": "way", "id": 301, "nodes": [201, 202], "tags": {"shop": "mall", "name": "Forum"}},
    {"type": "node", "id": 102, "lat": 12.9352, "lon": 77.6245, "tags": {"office": "it"}}
  ]
}`

func fixtureServer(t *testing.T, hits *int32) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(overpassFixture))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func statusServer(t *testing.T, status int, hits *int32) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testSettings(endpoints ...string) OverpassSettings {
	return OverpassSettings{
		Endpoints:          endpoints,
		Timeout:            5 * time.Second,
		RetryAttempts:      1,
		RetryBackoff:       time.Millisecond,
		BusinessArea:       "Karnataka",
		BusinessAdminLevel: 4,
		TransitArea:        "Bangalore",
		TransitAdminLevel:  8,
		TransitLimit:       5000,
	}
}

func TestNewOverpassRepository_NoEndpoints(t *testing.T) {
	_, err := NewOverpassRepository(testSettings(), nil)
	assert.ErrorIs(t, err, ErrNoEndpoints)
}

func TestOverpassRepository_FetchBusinesses(t *testing.T) {
	srv := fixtureServer(t, nil)
	repo, err := NewOverpassRepository(testSettings(srv.URL), nil)
	require.NoError(t, err)

	elements, err := repo.FetchBusinesses(context.Background())
	require.NoError(t, err)

	// Untagged member nodes are dropped; the way becomes its centroid.
	require.Len(t, elements, 3)

	assert.Equal(t, int64(101), elements[0].ID)
	assert.Equal(t, "node", elements[0].Type)
	assert.Equal(t, "cafe", elements[0].Tags["amenity"])
	assert.Equal(t, int64(102), elements[1].ID)

	way := elements[2]
	assert.Equal(t, int64(301), way.ID)
	assert.Equal(t, "way", way.Type)
	assert.InDelta(t, 12.975, way.Lat, 1e-9)
	assert.InDelta(t, 77.605, way.Lon, 1e-9)
	assert.Equal(t, "Forum", way.Tags["name"])
}

func TestOverpassRepository_FallsBackToNextEndpoint(t *testing.T) {
	var failed, served int32
	bad := statusServer(t, http.StatusServiceUnavailable, &failed)
	good := fixtureServer(t, &served)

	m := metrics.New(prometheus.NewRegistry())
	repo, err := NewOverpassRepository(testSettings(bad.URL, good.URL), m)
	require.NoError(t, err)

	elements, err := repo.FetchTransit(context.Background())
	require.NoError(t, err)
	assert.Len(t, elements, 3)

	assert.Equal(t, int32(1), atomic.LoadInt32(&failed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&served))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OverpassRequests.WithLabelValues(bad.URL, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OverpassRequests.WithLabelValues(good.URL, "ok")))
}

func TestOverpassRepository_RetriesTransientStatus(t *testing.T) {
	var hits int32
	bad := statusServer(t, http.StatusTooManyRequests, &hits)

	settings := testSettings(bad.URL)
	settings.RetryAttempts = 3
	repo, err := NewOverpassRepository(settings, nil)
	require.NoError(t, err)

	_, err = repo.FetchBusinesses(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllEndpointsFailed)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestOverpassRepository_AllEndpointsFail(t *testing.T) {
	var a, b int32
	first := statusServer(t, http.StatusBadGateway, &a)
	second := statusServer(t, http.StatusGatewayTimeout, &b)

	repo, err := NewOverpassRepository(testSettings(first.URL, second.URL), nil)
	require.NoError(t, err)

	_, err = repo.FetchBusinesses(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllEndpointsFailed)
	assert.Contains(t, err.Error(), first.URL)
	assert.Contains(t, err.Error(), second.URL)
}

func TestOverpassRepository_ContextCancelled(t *testing.T) {
	srv := fixtureServer(t, nil)
	repo, err := NewOverpassRepository(testSettings(srv.URL), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = repo.FetchBusinesses(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBusinessQuery(t *testing.T) {
	q := BusinessQuery("Karnataka", 4, 180)

	assert.Contains(t, q, "[out:json][timeout:180];")
	assert.Contains(t, q, `area["name"="Karnataka"]["boundary"="administrative"]["admin_level"="4"]`)
	assert.Contains(t, q, `nwr["amenity"~"restaurant|cafe|fast_food"]`)
	assert.Contains(t, q, "out skel qt;")
}

func TestTransitQuery(t *testing.T) {
	q := TransitQuery("Bangalore", 8, 5000, 120)

	assert.Contains(t, q, "[timeout:120]")
	assert.Contains(t, q, `node["highway"="bus_stop"]`)
	assert.Contains(t, q, `node["railway"="subway_entrance"]`)
	assert.Contains(t, q, "out body 5000;")

	assert.Contains(t, TransitQuery("Bangalore", 8, 0, 120), "out body;")
}
