package core

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/namrata935/polycentric-el/internal/domain/model"
	"github.com/namrata935/polycentric-el/internal/metrics"
)

// ElementFetcher pulls raw OSM elements from the geodata API.
type ElementFetcher interface {
	FetchBusinesses(ctx context.Context) ([]model.OSMElement, error)
	FetchTransit(ctx context.Context) ([]model.OSMElement, error)
}

// PointWriter persists parsed records keyed by OSM id.
type PointWriter interface {
	CountBusinesses(ctx context.Context) (int, error)
	CountTransit(ctx context.Context) (int, error)
	UpsertBusinesses(ctx context.Context, businesses []model.Business) (inserted, updated int, err error)
	UpsertTransit(ctx context.Context, nodes []model.TransitNode) (inserted, updated int, err error)
}

// IngestService loads businesses and transit nodes into storage.
type IngestService struct {
	fetcher ElementFetcher
	store   PointWriter
	metrics *metrics.Metrics
}

func NewIngestService(fetcher ElementFetcher, store PointWriter, m *metrics.Metrics) *IngestService {
	return &IngestService{
		fetcher: fetcher,
		store:   store,
		metrics: m,
	}
}

// LoadBusinesses fetches and stores businesses. Without force, an already
// populated table is left alone and the API is not called.
func (s *IngestService) LoadBusinesses(ctx context.Context, force bool) (*model.IngestResult, error) {
	return s.load(ctx, loadPlan{
		kind:  model.KindBusiness,
		force: force,
		count: s.store.CountBusinesses,
		fetch: s.fetcher.FetchBusinesses,
		store: func(ctx context.Context, elements []model.OSMElement) (int, int, int, error) {
			businesses, skipped := ParseBusinesses(elements)
			inserted, updated, err := s.store.UpsertBusinesses(ctx, businesses)
			return inserted, updated, skipped, err
		},
	})
}

// LoadTransit fetches and stores transit nodes, with the same force guard.
func (s *IngestService) LoadTransit(ctx context.Context, force bool) (*model.IngestResult, error) {
	return s.load(ctx, loadPlan{
		kind:  model.KindTransit,
		force: force,
		count: s.store.CountTransit,
		fetch: s.fetcher.FetchTransit,
		store: func(ctx context.Context, elements []model.OSMElement) (int, int, int, error) {
			nodes, skipped := ParseTransitNodes(elements)
			inserted, updated, err := s.store.UpsertTransit(ctx, nodes)
			return inserted, updated, skipped, err
		},
	})
}

type loadPlan struct {
	kind  model.PointKind
	force bool
	count func(context.Context) (int, error)
	fetch func(context.Context) ([]model.OSMElement, error)
	store func(context.Context, []model.OSMElement) (inserted, updated, skipped int, err error)
}

func (s *IngestService) load(ctx context.Context, p loadPlan) (*model.IngestResult, error) {
	existing, err := p.count(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: count existing %s records", p.kind)
	}

	if existing > 0 && !p.force {
		zap.L().Info("ingest skipped, data already present",
			zap.String("kind", string(p.kind)),
			zap.Int("existing", existing),
		)
		return &model.IngestResult{
			Status:   model.IngestStatusSkipped,
			Message:  fmt.Sprintf("%s data already exists, API call skipped; use force to reload", p.kind),
			Total:    existing,
			Existing: existing,
		}, nil
	}

	if existing > 0 {
		zap.L().Info("forcing reload", zap.String("kind", string(p.kind)), zap.Int("existing", existing))
	}

	elements, err := p.fetch(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: fetch %s elements", p.kind)
	}

	inserted, updated, skipped, err := p.store(ctx, elements)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: store %s records", p.kind)
	}
	s.metrics.AddIngested(p.kind, inserted, updated, skipped)

	total, err := p.count(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: count %s records", p.kind)
	}

	zap.L().Info("ingest complete",
		zap.String("kind", string(p.kind)),
		zap.Int("elements", len(elements)),
		zap.Int("inserted", inserted),
		zap.Int("updated", updated),
		zap.Int("skipped", skipped),
		zap.Int("total", total),
	)

	return &model.IngestResult{
		Status:   model.IngestStatusSuccess,
		Message:  fmt.Sprintf("%s data loaded", p.kind),
		Inserted: inserted,
		Updated:  updated,
		Skipped:  skipped,
		Total:    total,
	}, nil
}
