package core

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/namrata935/polycentric-el/internal/domain/model"
	"github.com/namrata935/polycentric-el/internal/metrics"
)

// PointSource lists stored points of one kind.
type PointSource interface {
	ListPoints(ctx context.Context, kind model.PointKind) ([]model.Point, error)
}

// ZoneService loads stored points and runs the zone classification.
type ZoneService struct {
	points  PointSource
	scorer  *ZoneScorer
	metrics *metrics.Metrics
}

func NewZoneService(points PointSource, scorer *ZoneScorer, m *metrics.Metrics) *ZoneService {
	return &ZoneService{
		points:  points,
		scorer:  scorer,
		metrics: m,
	}
}

// ClassifyZones recomputes the full zone set from the stored points. Either
// every zone is returned or an error is.
func (s *ZoneService) ClassifyZones(ctx context.Context) ([]model.Zone, error) {
	start := time.Now()

	var business, transit []model.Point
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pts, err := s.points.ListPoints(gctx, model.KindBusiness)
		if err != nil {
			return eris.Wrap(err, "zones: load business points")
		}
		business = pts
		return nil
	})
	g.Go(func() error {
		pts, err := s.points.ListPoints(gctx, model.KindTransit)
		if err != nil {
			return eris.Wrap(err, "zones: load transit points")
		}
		transit = pts
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	zones := s.scorer.Classify(Aggregate(business), Aggregate(transit))
	zones = attachCategories(zones, CategoryMix(business))

	summary := Summarize(zones)
	s.metrics.ObserveClassification(time.Since(start), summary.ByType)
	zap.L().Info("zones classified",
		zap.Int("business_points", len(business)),
		zap.Int("transit_points", len(transit)),
		zap.Int("zones", len(zones)),
		zap.Int("commercial", summary.ByType[model.ZoneCommercial]),
		zap.Int("balanced", summary.ByType[model.ZoneBalanced]),
		zap.Int("opportunity", summary.ByType[model.ZoneOpportunity]),
		zap.String("strategy", string(s.scorer.Options().Strategy)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return zones, nil
}

// Summary classifies the zones and aggregates the result.
func (s *ZoneService) Summary(ctx context.Context) (model.Summary, error) {
	zones, err := s.ClassifyZones(ctx)
	if err != nil {
		return model.Summary{}, err
	}
	return Summarize(zones), nil
}

func attachCategories(in []model.Zone, mix map[model.CellKey]map[string]int) []model.Zone {
	out := clone(in)
	for i := range out {
		if cats, ok := mix[out[i].Key()]; ok {
			out[i].Categories = cats
		}
	}
	return out
}
