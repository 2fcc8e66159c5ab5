package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/namrata935/polycentric-el/internal/domain/model"
)

// Metrics provides observability for classification runs and ingestion.
type Metrics struct {
	// Duration of a full classification run including point loading
	ClassifyDuration prometheus.Histogram

	// Zones per tier in the most recent run
	ZonesByType *prometheus.GaugeVec

	// Ingested elements by kind and outcome
	IngestElements *prometheus.CounterVec

	// Overpass requests by endpoint and result
	OverpassRequests *prometheus.CounterVec
}

// New creates a Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ClassifyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "zones_classify_duration_seconds",
			Help:    "Duration of zone classification runs",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		ZonesByType: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "zones_classified",
			Help: "Number of zones per tier in the latest classification run",
		}, []string{"zone_type"}),

		IngestElements: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zones_ingest_elements_total",
			Help: "Ingested OSM elements by kind and outcome",
		}, []string{"kind", "outcome"}), // outcome: "inserted", "updated", "skipped"

		OverpassRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zones_overpass_requests_total",
			Help: "Overpass API requests by endpoint and result",
		}, []string{"endpoint", "result"}),
	}
}

// ObserveClassification records a finished run and its tier distribution.
func (m *Metrics) ObserveClassification(d time.Duration, byType map[model.ZoneType]int) {
	if m == nil {
		return
	}
	m.ClassifyDuration.Observe(d.Seconds())
	for _, t := range []model.ZoneType{model.ZoneCommercial, model.ZoneBalanced, model.ZoneOpportunity} {
		m.ZonesByType.WithLabelValues(string(t)).Set(float64(byType[t]))
	}
}

// AddIngested records the outcome counts of one load run.
func (m *Metrics) AddIngested(kind model.PointKind, inserted, updated, skipped int) {
	if m == nil {
		return
	}
	m.IngestElements.WithLabelValues(string(kind), "inserted").Add(float64(inserted))
	m.IngestElements.WithLabelValues(string(kind), "updated").Add(float64(updated))
	m.IngestElements.WithLabelValues(string(kind), "skipped").Add(float64(skipped))
}

// IncOverpassRequest records a single Overpass request outcome.
func (m *Metrics) IncOverpassRequest(endpoint string, ok bool) {
	if m == nil {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	m.OverpassRequests.WithLabelValues(endpoint, result).Inc()
}
