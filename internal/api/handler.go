package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/namrata935/polycentric-el/internal/core"
	"github.com/namrata935/polycentric-el/internal/domain/model"
)

// ZoneClassifier produces the classified zone set.
type ZoneClassifier interface {
	ClassifyZones(ctx context.Context) ([]model.Zone, error)
	Summary(ctx context.Context) (model.Summary, error)
}

// Loader runs point ingestion.
type Loader interface {
	LoadBusinesses(ctx context.Context, force bool) (*model.IngestResult, error)
	LoadTransit(ctx context.Context, force bool) (*model.IngestResult, error)
}

// RecordLister lists stored records.
type RecordLister interface {
	ListBusinesses(ctx context.Context) ([]model.Business, error)
	ListTransit(ctx context.Context) ([]model.TransitNode, error)
}

type Handler struct {
	zones   ZoneClassifier
	loader  Loader
	records RecordLister
}

func NewHandler(zones ZoneClassifier, loader Loader, records RecordLister) *Handler {
	return &Handler{zones: zones, loader: loader, records: records}
}

type ZonesResponse struct {
	Status string       `json:"status"`
	Zones  []model.Zone `json:"zones"`
	Count  int          `json:"count"`
}

type SummaryResponse struct {
	Status  string        `json:"status"`
	Summary model.Summary `json:"summary"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Routes builds the router. gatherer may be nil to leave out /metrics.
func (h *Handler) Routes(allowedOrigins []string, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", h.Health)

	r.Route("/zones", func(r chi.Router) {
		r.Get("/all", h.AllZones)
		r.Get("/summary", h.ZonesSummary)
	})
	r.Route("/business", func(r chi.Router) {
		r.Post("/load", h.LoadBusinesses)
		r.Get("/all", h.AllBusinesses)
	})
	r.Route("/transit", func(r chi.Router) {
		r.Post("/load_transit", h.LoadTransit)
		r.Get("/all", h.AllTransit)
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) AllZones(w http.ResponseWriter, r *http.Request) {
	var bounds *model.Bounds
	if bbox := r.URL.Query().Get("bbox"); bbox != "" {
		b, err := core.ParseBounds(bbox)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Status: "error", Message: err.Error()})
			return
		}
		bounds = &b
	}

	zones, err := h.zones.ClassifyZones(r.Context())
	if err != nil {
		writeError(w, r, "classify zones", err)
		return
	}
	// Tiers are always computed over the full set; bbox only trims the response.
	if bounds != nil {
		zones = core.WithinBounds(zones, *bounds)
	}
	writeJSON(w, http.StatusOK, ZonesResponse{Status: "success", Zones: zones, Count: len(zones)})
}

func (h *Handler) ZonesSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.zones.Summary(r.Context())
	if err != nil {
		writeError(w, r, "summarize zones", err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{Status: "success", Summary: summary})
}

func (h *Handler) LoadBusinesses(w http.ResponseWriter, r *http.Request) {
	result, err := h.loader.LoadBusinesses(r.Context(), forceParam(r))
	if err != nil {
		writeError(w, r, "load businesses", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) LoadTransit(w http.ResponseWriter, r *http.Request) {
	result, err := h.loader.LoadTransit(r.Context(), forceParam(r))
	if err != nil {
		writeError(w, r, "load transit", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) AllBusinesses(w http.ResponseWriter, r *http.Request) {
	businesses, err := h.records.ListBusinesses(r.Context())
	if err != nil {
		writeError(w, r, "list businesses", err)
		return
	}
	if businesses == nil {
		businesses = []model.Business{}
	}
	writeJSON(w, http.StatusOK, businesses)
}

func (h *Handler) AllTransit(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.records.ListTransit(r.Context())
	if err != nil {
		writeError(w, r, "list transit nodes", err)
		return
	}
	if nodes == nil {
		nodes = []model.TransitNode{}
	}
	writeJSON(w, http.StatusOK, nodes)
}

func forceParam(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("force"), "true")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	zap.L().Error("request failed",
		zap.String("op", op),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Status: "error", Message: err.Error()})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
