package repository

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/serjvanilla/go-overpass"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/namrata935/polycentric-el/internal/domain/model"
	"github.com/namrata935/polycentric-el/internal/metrics"
	"github.com/namrata935/polycentric-el/internal/resilience"
)

var (
	ErrNoEndpoints        = eris.New("overpass: no endpoints configured")
	ErrAllEndpointsFailed = eris.New("overpass: all endpoints failed")
)

// OverpassSettings configures the Overpass repository.
type OverpassSettings struct {
	Endpoints         []string
	Timeout           time.Duration
	MaxParallel       int
	RequestsPerMinute int
	RetryAttempts     int
	RetryBackoff      time.Duration

	BusinessArea       string
	BusinessAdminLevel int
	TransitArea        string
	TransitAdminLevel  int
	TransitLimit       int
}

type overpassEndpoint struct {
	url    string
	client *overpass.Client
}

// OverpassRepository queries a list of Overpass endpoints in order and
// returns the first successful answer.
type OverpassRepository struct {
	endpoints []overpassEndpoint
	settings  OverpassSettings
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
}

func NewOverpassRepository(settings OverpassSettings, m *metrics.Metrics) (*OverpassRepository, error) {
	if len(settings.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	if settings.MaxParallel <= 0 {
		settings.MaxParallel = 1
	}

	httpClient := &http.Client{
		Timeout:   settings.Timeout,
		Transport: statusTransport{base: http.DefaultTransport},
	}

	endpoints := make([]overpassEndpoint, 0, len(settings.Endpoints))
	for _, url := range settings.Endpoints {
		client := overpass.NewWithSettings(url, settings.MaxParallel, httpClient)
		endpoints = append(endpoints, overpassEndpoint{url: url, client: &client})
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if settings.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(settings.RequestsPerMinute)), 1)
	}

	return &OverpassRepository{
		endpoints: endpoints,
		settings:  settings,
		limiter:   limiter,
		metrics:   m,
	}, nil
}

// FetchBusinesses returns offices, shops and amenities in the business area.
func (r *OverpassRepository) FetchBusinesses(ctx context.Context) ([]model.OSMElement, error) {
	query := BusinessQuery(r.settings.BusinessArea, r.settings.BusinessAdminLevel, r.timeoutSecs())
	elements, err := r.executeQuery(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "failed to execute business data query")
	}
	return elements, nil
}

// FetchTransit returns bus stops, stations and subway entrances in the transit area.
func (r *OverpassRepository) FetchTransit(ctx context.Context) ([]model.OSMElement, error) {
	query := TransitQuery(r.settings.TransitArea, r.settings.TransitAdminLevel, r.settings.TransitLimit, r.timeoutSecs())
	elements, err := r.executeQuery(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "failed to execute transit data query")
	}
	return elements, nil
}

func BusinessQuery(area string, adminLevel, timeoutSecs int) string {
	return fmt.Sprintf(`
		[out:json][timeout:%d];
		area["name"="%s"]["boundary"="administrative"]["admin_level"="%d"]->.searchArea;
		(
			nwr["office"~"company|it|software|research"](area.searchArea);
			nwr["shop"~"supermarket|mall|convenience"](area.searchArea);
			nwr["amenity"~"restaurant|cafe|fast_food"](area.searchArea);
			nwr["amenity"~"clinic|hospital"](area.searchArea);
			nwr["amenity"~"school|college"](area.searchArea);
		);
		out body;
		>;
		out skel qt;
	`, timeoutSecs, area, adminLevel)
}

func TransitQuery(area string, adminLevel, limit, timeoutSecs int) string {
	out := "out body;"
	if limit > 0 {
		out = fmt.Sprintf("out body %d;", limit)
	}
	return fmt.Sprintf(`
		[out:json][timeout:%d];
		area["name"="%s"]["admin_level"="%d"]->.searchArea;
		(
			node["highway"="bus_stop"](area.searchArea);
			node["railway"="subway_entrance"](area.searchArea);
			node["railway"="station"](area.searchArea);
		);
		%s
	`, timeoutSecs, area, adminLevel, out)
}

func (r *OverpassRepository) timeoutSecs() int {
	secs := int(r.settings.Timeout / time.Second)
	if secs <= 0 {
		return 180
	}
	return secs
}

// executeQuery tries each endpoint in order, retrying transient failures,
// until one answers.
func (r *OverpassRepository) executeQuery(ctx context.Context, query string) ([]model.OSMElement, error) {
	var lastErr error
	tried := make([]string, 0, len(r.endpoints))

	for _, ep := range r.endpoints {
		tried = append(tried, ep.url)
		zap.L().Info("querying overpass", zap.String("endpoint", ep.url))

		result, err := resilience.Run(ctx, resilience.Policy{
			Attempts: r.settings.RetryAttempts,
			Backoff:  r.settings.RetryBackoff,
			Jitter:   0.25,
			OnRetry:  resilience.LogRetry("overpass", ep.url),
		}, func(ctx context.Context) (*overpass.Result, error) {
			return r.query(ctx, ep, query)
		})
		r.metrics.IncOverpassRequest(ep.url, err == nil)
		if err == nil {
			elements := convertToOSMElements(result)
			zap.L().Info("overpass query succeeded",
				zap.String("endpoint", ep.url),
				zap.Int("elements", len(elements)),
			)
			return elements, nil
		}

		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "overpass query cancelled")
		}
		zap.L().Warn("overpass endpoint failed", zap.String("endpoint", ep.url), zap.Error(err))
		lastErr = err
	}

	return nil, eris.Wrapf(ErrAllEndpointsFailed, "last error: %v; tried endpoints: %s",
		lastErr, strings.Join(tried, ", "))
}

// query runs one request. The client has no context support, so the call
// is raced against ctx and abandoned on cancellation.
func (r *OverpassRepository) query(ctx context.Context, ep overpassEndpoint, query string) (*overpass.Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "overpass rate limiter")
	}

	type outcome struct {
		result overpass.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := ep.client.Query(query)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		if out.err != nil {
			return nil, fmt.Errorf("overpass query failed: %w", out.err)
		}
		return &out.result, nil
	}
}

// convertToOSMElements keeps tagged nodes and ways. Ways are reduced to the
// centroid of their resolved member nodes; relations are ignored. Output is
// sorted by type and id.
func convertToOSMElements(result *overpass.Result) []model.OSMElement {
	var elements []model.OSMElement

	for _, node := range result.Nodes {
		if len(node.Tags) == 0 {
			continue
		}
		elements = append(elements, model.OSMElement{
			ID:   node.ID,
			Type: string(overpass.ElementTypeNode),
			Lat:  node.Lat,
			Lon:  node.Lon,
			Tags: node.Tags,
		})
	}

	for _, way := range result.Ways {
		if len(way.Tags) == 0 {
			continue
		}
		var lat, lon float64
		count := 0
		for _, node := range way.Nodes {
			if node == nil || (node.Lat == 0 && node.Lon == 0) {
				continue
			}
			lat += node.Lat
			lon += node.Lon
			count++
		}
		if count == 0 {
			continue
		}

		elements = append(elements, model.OSMElement{
			ID:   way.ID,
			Type: string(overpass.ElementTypeWay),
			Lat:  lat / float64(count),
			Lon:  lon / float64(count),
			Tags: way.Tags,
		})
	}

	sort.Slice(elements, func(i, j int) bool {
		if elements[i].Type != elements[j].Type {
			return elements[i].Type < elements[j].Type
		}
		return elements[i].ID < elements[j].ID
	})
	return elements
}

// statusTransport turns throttling and gateway responses into transient errors.
type statusTransport struct {
	base http.RoundTripper
}

func (t statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", "Polycentric-EL/1.0 (zone classifier)")
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		resp.Body.Close()
		return nil, resilience.NewTransientError(
			fmt.Errorf("transient upstream status %d", resp.StatusCode), resp.StatusCode)
	}
	return resp, nil
}
